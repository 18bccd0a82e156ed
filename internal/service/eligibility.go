package service

import (
	"context"
	"fmt"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

// markValues maps component id to the stored value; null and missing marks are 0
func markValues(marks []*domain.StudentMark) map[uuid.UUID]float64 {
	values := make(map[uuid.UUID]float64, len(marks))
	for _, m := range marks {
		if m.MarksObtained != nil {
			values[m.TestComponentID] = *m.MarksObtained
		}
	}
	return values
}

// enforceEligibility stores NULL on every conditional component of the
// enrollment whose condition is met (first+second >= threshold). When
// trigger is non-nil only components conditioned on it are evaluated.
// Returns the components that were nulled.
func enforceEligibility(
	ctx context.Context,
	uow interfaces.UnitOfWork,
	enrollment *domain.Enrollment,
	trigger *uuid.UUID,
) ([]uuid.UUID, error) {
	components, err := uow.Components().ListByOffering(ctx, enrollment.OfferingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	marks, err := uow.Marks().ListByEnrollment(ctx, enrollment.EnrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list marks: %w", err)
	}

	values := markValues(marks)
	byComponent := make(map[uuid.UUID]*domain.StudentMark, len(marks))
	for _, m := range marks {
		byComponent[m.TestComponentID] = m
	}

	var nulled []uuid.UUID
	for _, c := range components {
		cond, ok := c.Condition()
		if !ok {
			continue
		}
		if trigger != nil && !cond.DependsOn(*trigger) {
			continue
		}
		if cond.Creditable(values[cond.FirstID], values[cond.SecondID]) {
			continue
		}
		mark := byComponent[c.ComponentID]
		if mark == nil || mark.MarksObtained == nil {
			continue
		}
		mark.MarksObtained = nil
		if err := uow.Marks().Update(ctx, mark); err != nil {
			return nil, fmt.Errorf("failed to null mark of component %s: %w", c.ComponentID, err)
		}
		nulled = append(nulled, c.ComponentID)
	}
	return nulled, nil
}
