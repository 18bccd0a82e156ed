package service

import (
	"context"
	"fmt"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"
	serviceInterfaces "college-records/internal/interfaces/service"
	"college-records/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ serviceInterfaces.MarksService = (*MarksService)(nil)

// MarksService validates mark writes and computes totals
type MarksService struct {
	store interfaces.Store
}

func NewMarksService(store interfaces.Store) *MarksService {
	return &MarksService{store: store}
}

// SetMark writes one mark and re-evaluates every component conditioned on it
// in the same transaction. A rejected write leaves the prior value untouched.
func (s *MarksService) SetMark(ctx context.Context, principal *user.Principal, req *domain.SetMarkRequest) (*domain.MarkResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var result *domain.MarkResult
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		enrollment, err := getEnrollment(ctx, uow, req.EnrollmentID)
		if err != nil {
			return err
		}
		offering, err := getOffering(ctx, uow, enrollment.OfferingID)
		if err != nil {
			return err
		}
		if err := authorizeOffering(ctx, uow, principal, offering); err != nil {
			return err
		}

		component, err := uow.Components().GetByID(ctx, req.ComponentID)
		if err != nil {
			return fmt.Errorf("failed to get component: %w", err)
		}
		if component == nil {
			return domain.NewNotFoundError("test_component", req.ComponentID)
		}
		if component.OfferingID != enrollment.OfferingID {
			return domain.NewValidationError("componentId",
				"component %q does not belong to the enrollment's offering", component.Name)
		}

		if req.MarksObtained != nil {
			if err := domain.ValidateMark(component, *req.MarksObtained); err != nil {
				return err
			}
			if cond, ok := component.Condition(); ok {
				marks, err := uow.Marks().ListByEnrollment(ctx, enrollment.EnrollmentID)
				if err != nil {
					return fmt.Errorf("failed to list marks: %w", err)
				}
				values := markValues(marks)
				first, second := values[cond.FirstID], values[cond.SecondID]
				if !cond.Creditable(first, second) {
					return domain.NewValidationError("marksObtained",
						"component %q is not creditable: %g + %g reaches the threshold %g",
						component.Name, first, second, cond.Threshold)
				}
			}
		}

		if err := uow.Marks().Upsert(ctx, &domain.StudentMark{
			MarkID:          uuid.New(),
			EnrollmentID:    enrollment.EnrollmentID,
			TestComponentID: component.ComponentID,
			MarksObtained:   req.MarksObtained,
		}); err != nil {
			return fmt.Errorf("failed to write mark: %w", err)
		}

		nulled, err := enforceEligibility(ctx, uow, enrollment, &component.ComponentID)
		if err != nil {
			return err
		}
		result = &domain.MarkResult{Accepted: true, Nulled: nulled}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Nulled) > 0 {
		logger.WithFields(logrus.Fields{
			"enrollment_id": req.EnrollmentID,
			"component_id":  req.ComponentID,
			"nulled":        result.Nulled,
		}).Info("Conditional marks nulled")
	}
	return result, nil
}

type enrollmentMarks struct {
	course     *domain.Course
	components []*domain.TestComponent
	marks      []*domain.StudentMark
}

func (s *MarksService) load(ctx context.Context, enrollmentID uuid.UUID) (*domain.Enrollment, *domain.CourseOffering, *enrollmentMarks, error) {
	enrollment, err := getEnrollment(ctx, s.store, enrollmentID)
	if err != nil {
		return nil, nil, nil, err
	}
	offering, err := getOffering(ctx, s.store, enrollment.OfferingID)
	if err != nil {
		return nil, nil, nil, err
	}
	course, err := s.store.Courses().GetByID(ctx, offering.CourseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, nil, nil, domain.NewNotFoundError("course", offering.CourseID)
	}
	components, err := s.store.Components().ListByOffering(ctx, offering.OfferingID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list components: %w", err)
	}
	marks, err := s.store.Marks().ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list marks: %w", err)
	}
	return enrollment, offering, &enrollmentMarks{course: course, components: components, marks: marks}, nil
}

func (m *enrollmentMarks) total(t domain.ComponentType) float64 {
	types := make(map[uuid.UUID]domain.ComponentType, len(m.components))
	for _, c := range m.components {
		types[c.ComponentID] = c.Type
	}
	sum := 0.0
	for _, mark := range m.marks {
		if mark.MarksObtained != nil && types[mark.TestComponentID] == t {
			sum += *mark.MarksObtained
		}
	}
	return sum
}

// Total sums the enrollment's marks over components of one type
func (s *MarksService) Total(ctx context.Context, enrollmentID uuid.UUID, componentType domain.ComponentType) (float64, error) {
	componentType, err := domain.ParseComponentType(string(componentType))
	if err != nil {
		return 0, err
	}
	_, _, data, err := s.load(ctx, enrollmentID)
	if err != nil {
		return 0, err
	}
	if !data.course.AllowsComponent(componentType) {
		return 0, domain.NewValidationError("type", "course %s has no %s component", data.course.Code, componentType)
	}
	return data.total(componentType), nil
}

// Summary returns both totals and the weighted total sum(marks/max * weightage)
func (s *MarksService) Summary(ctx context.Context, principal *user.Principal, enrollmentID uuid.UUID) (*domain.MarksSummary, error) {
	_, offering, data, err := s.load(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOffering(ctx, s.store, principal, offering); err != nil {
		return nil, err
	}

	summary := &domain.MarksSummary{EnrollmentID: enrollmentID}
	if data.course.HasTheoryComponent {
		summary.TheoryTotal = data.total(domain.ComponentTheory)
	}
	if data.course.HasLabComponent {
		summary.LabTotal = data.total(domain.ComponentLab)
	}

	values := markValues(data.marks)
	for _, c := range data.components {
		if c.MaxMarks > 0 {
			summary.WeightedTotal += values[c.ComponentID] / c.MaxMarks * c.Weightage
		}
	}
	return summary, nil
}
