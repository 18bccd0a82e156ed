package service

import (
	"context"
	"fmt"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// mergeStats counts what one merge or migration did; it is persisted as the
// reconciliation log details
type mergeStats struct {
	ComponentsMerged   int
	ComponentsMoved    int
	EnrollmentsMoved   int
	EnrollmentsDeduped int
	MarksCarried       int
	MarksDropped       int
	SessionsMerged     int
	SessionsMoved      int
	RecordsCarried     int
	RecordsDropped     int
	MarksNulled        int
}

func (m mergeStats) details() datatypes.JSONMap {
	return datatypes.JSONMap{
		"components_merged":   m.ComponentsMerged,
		"components_moved":    m.ComponentsMoved,
		"enrollments_moved":   m.EnrollmentsMoved,
		"enrollments_deduped": m.EnrollmentsDeduped,
		"marks_carried":       m.MarksCarried,
		"marks_dropped":       m.MarksDropped,
		"sessions_merged":     m.SessionsMerged,
		"sessions_moved":      m.SessionsMoved,
		"records_carried":     m.RecordsCarried,
		"records_dropped":     m.RecordsDropped,
		"marks_nulled":        m.MarksNulled,
	}
}

type componentKey struct {
	name string
	kind domain.ComponentType
}

func keyOf(c *domain.TestComponent) componentKey {
	return componentKey{name: domain.NormalizeName(c.Name), kind: c.Type}
}

// matchComponents maps each source component to the target component with
// the same (name, type). Unmatched source components are absent from the map.
func matchComponents(source, target []*domain.TestComponent) map[uuid.UUID]uuid.UUID {
	byKey := make(map[componentKey]uuid.UUID, len(target))
	for _, c := range target {
		if _, seen := byKey[keyOf(c)]; !seen {
			byKey[keyOf(c)] = c.ComponentID
		}
	}
	out := make(map[uuid.UUID]uuid.UUID)
	for _, c := range source {
		if id, ok := byKey[keyOf(c)]; ok {
			out[c.ComponentID] = id
		}
	}
	return out
}

// moveMarks re-homes marks onto targetEnrollment following componentMap.
// A mark whose component has no mapping, or whose target slot is already
// taken, is deleted.
func moveMarks(
	ctx context.Context,
	uow interfaces.UnitOfWork,
	marks []*domain.StudentMark,
	targetEnrollment uuid.UUID,
	componentMap map[uuid.UUID]uuid.UUID,
	stats *mergeStats,
) error {
	for _, mark := range marks {
		target, ok := componentMap[mark.TestComponentID]
		if !ok {
			if err := uow.Marks().Delete(ctx, mark.MarkID); err != nil {
				return fmt.Errorf("failed to drop unmatched mark: %w", err)
			}
			stats.MarksDropped++
			continue
		}

		existing, err := uow.Marks().Get(ctx, targetEnrollment, target)
		if err != nil {
			return fmt.Errorf("failed to get mark: %w", err)
		}
		if existing != nil && existing.MarkID != mark.MarkID {
			if err := uow.Marks().Delete(ctx, mark.MarkID); err != nil {
				return fmt.Errorf("failed to drop colliding mark: %w", err)
			}
			stats.MarksDropped++
			continue
		}

		if mark.EnrollmentID == targetEnrollment && mark.TestComponentID == target {
			continue
		}
		mark.EnrollmentID = targetEnrollment
		mark.TestComponentID = target
		if err := uow.Marks().Update(ctx, mark); err != nil {
			return fmt.Errorf("failed to move mark: %w", err)
		}
		stats.MarksCarried++
	}
	return nil
}

// deleteComponents removes a set of components. Conditions inside the set
// are cleared first, since a component may not be deleted while another
// still names it as a condition input.
func deleteComponents(ctx context.Context, uow interfaces.UnitOfWork, components []*domain.TestComponent) error {
	for _, c := range components {
		if c.ConditionFirstID == nil && c.ConditionSecondID == nil && c.ConditionThreshold == nil {
			continue
		}
		c.ConditionFirstID, c.ConditionSecondID, c.ConditionThreshold = nil, nil, nil
		if err := uow.Components().Update(ctx, c); err != nil {
			return fmt.Errorf("failed to clear condition of %s: %w", c.ComponentID, err)
		}
	}
	for _, c := range components {
		if err := uow.Components().Delete(ctx, c.ComponentID); err != nil {
			return fmt.Errorf("failed to delete component %s: %w", c.ComponentID, err)
		}
	}
	return nil
}

// newBoundaryReasons lists the college/department boundaries a student would
// cross by moving from one offering to another
func newBoundaryReasons(student *domain.Student, from, to *domain.OfferingDetail) []domain.PlacementReason {
	before := make(map[domain.PlacementReason]bool)
	for _, r := range domain.CrossesBoundary(domain.CheckPlacement(student, from)) {
		before[r] = true
	}
	var out []domain.PlacementReason
	for _, r := range domain.CrossesBoundary(domain.CheckPlacement(student, to)) {
		if !before[r] {
			out = append(out, r)
		}
	}
	return out
}

// mergeOffering folds donor into survivor and deletes donor. It must run
// inside a transaction: a PlacementError leaves partial work to be rolled back.
func mergeOffering(
	ctx context.Context,
	uow interfaces.UnitOfWork,
	survivor, donor *domain.OfferingDetail,
) (mergeStats, error) {
	var stats mergeStats
	survivorID, donorID := survivor.Offering.OfferingID, donor.Offering.OfferingID

	for _, id := range []uuid.UUID{survivorID, donorID} {
		locked, err := uow.Offerings().GetByIDForUpdate(ctx, id)
		if err != nil {
			return stats, fmt.Errorf("failed to lock offering %s: %w", id, err)
		}
		if locked == nil {
			return stats, domain.NewNotFoundError("offering", id)
		}
	}

	enrollments, err := uow.Enrollments().ListByOffering(ctx, donorID)
	if err != nil {
		return stats, fmt.Errorf("failed to list donor enrollments: %w", err)
	}

	// Refuse before touching anything if a student would change college or department
	for _, e := range enrollments {
		student, err := getStudent(ctx, uow, e.StudentID)
		if err != nil {
			return stats, err
		}
		if reasons := newBoundaryReasons(student, donor, survivor); len(reasons) > 0 {
			return stats, domain.NewPlacementError(student.StudentID, survivorID, reasons...)
		}
	}

	// Components
	survivorComponents, err := uow.Components().ListByOffering(ctx, survivorID)
	if err != nil {
		return stats, fmt.Errorf("failed to list survivor components: %w", err)
	}
	donorComponents, err := uow.Components().ListByOffering(ctx, donorID)
	if err != nil {
		return stats, fmt.Errorf("failed to list donor components: %w", err)
	}

	componentMap := matchComponents(donorComponents, survivorComponents)
	var merged []*domain.TestComponent
	var moved []*domain.TestComponent
	for _, c := range donorComponents {
		if _, ok := componentMap[c.ComponentID]; ok {
			merged = append(merged, c)
			continue
		}
		componentMap[c.ComponentID] = c.ComponentID
		moved = append(moved, c)
	}
	for _, c := range moved {
		c.OfferingID = survivorID
		if c.ConditionFirstID != nil {
			if first, ok := componentMap[*c.ConditionFirstID]; ok {
				c.ConditionFirstID = &first
			}
		}
		if c.ConditionSecondID != nil {
			if second, ok := componentMap[*c.ConditionSecondID]; ok {
				c.ConditionSecondID = &second
			}
		}
		if err := uow.Components().Update(ctx, c); err != nil {
			return stats, fmt.Errorf("failed to re-point component %s: %w", c.ComponentID, err)
		}
		stats.ComponentsMoved++
	}

	// Enrollments and their marks
	var touched []*domain.Enrollment
	for _, e := range enrollments {
		marks, err := uow.Marks().ListByEnrollment(ctx, e.EnrollmentID)
		if err != nil {
			return stats, fmt.Errorf("failed to list marks: %w", err)
		}

		existing, err := uow.Enrollments().GetByStudentAndOffering(ctx, e.StudentID, survivorID)
		if err != nil {
			return stats, fmt.Errorf("failed to get survivor enrollment: %w", err)
		}
		if existing != nil {
			if err := moveMarks(ctx, uow, marks, existing.EnrollmentID, componentMap, &stats); err != nil {
				return stats, err
			}
			if err := uow.Enrollments().Delete(ctx, e.EnrollmentID); err != nil {
				return stats, fmt.Errorf("failed to delete duplicate enrollment: %w", err)
			}
			stats.EnrollmentsDeduped++
			touched = append(touched, existing)
			continue
		}

		e.OfferingID = survivorID
		if err := uow.Enrollments().Update(ctx, e); err != nil {
			return stats, fmt.Errorf("failed to re-point enrollment: %w", err)
		}
		if err := moveMarks(ctx, uow, marks, e.EnrollmentID, componentMap, &stats); err != nil {
			return stats, err
		}
		stats.EnrollmentsMoved++
		touched = append(touched, e)
	}

	if err := deleteComponents(ctx, uow, merged); err != nil {
		return stats, fmt.Errorf("failed to delete merged components: %w", err)
	}
	stats.ComponentsMerged += len(merged)

	// Sessions and their records
	sessions, err := uow.Sessions().ListByOffering(ctx, donorID)
	if err != nil {
		return stats, fmt.Errorf("failed to list donor sessions: %w", err)
	}
	for _, s := range sessions {
		match, err := uow.Sessions().GetBySlot(ctx, survivorID, s.ClassDate, s.PeriodNumber)
		if err != nil {
			return stats, fmt.Errorf("failed to get survivor session: %w", err)
		}
		if match == nil {
			s.OfferingID = survivorID
			if err := uow.Sessions().Update(ctx, s); err != nil {
				return stats, fmt.Errorf("failed to re-point session: %w", err)
			}
			stats.SessionsMoved++
			continue
		}

		records, err := uow.Records().ListBySession(ctx, s.SessionID)
		if err != nil {
			return stats, fmt.Errorf("failed to list records: %w", err)
		}
		for _, r := range records {
			if err := carryRecord(ctx, uow, r, match.SessionID, &stats); err != nil {
				return stats, err
			}
		}
		if err := uow.Sessions().Delete(ctx, s.SessionID); err != nil {
			return stats, fmt.Errorf("failed to delete merged session: %w", err)
		}
		stats.SessionsMerged++
	}

	for _, e := range touched {
		nulled, err := enforceEligibility(ctx, uow, e, nil)
		if err != nil {
			return stats, err
		}
		stats.MarksNulled += len(nulled)
	}

	if err := uow.Offerings().Delete(ctx, donorID); err != nil {
		return stats, fmt.Errorf("failed to delete donor offering: %w", err)
	}
	return stats, nil
}

// carryRecord moves a record into targetSession unless the student already
// has one there, in which case the moved record is dropped
func carryRecord(ctx context.Context, uow interfaces.UnitOfWork, r *domain.AttendanceRecord, targetSession uuid.UUID, stats *mergeStats) error {
	existing, err := uow.Records().Get(ctx, targetSession, r.StudentID)
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}
	if existing != nil {
		if err := uow.Records().Delete(ctx, r.RecordID); err != nil {
			return fmt.Errorf("failed to drop colliding record: %w", err)
		}
		stats.RecordsDropped++
		return nil
	}
	r.SessionID = targetSession
	if err := uow.Records().Update(ctx, r); err != nil {
		return fmt.Errorf("failed to move record: %w", err)
	}
	stats.RecordsCarried++
	return nil
}

// migrateEnrollment moves one student's enrollment from its current
// offering to target. Marks follow components by (name, type), records
// follow sessions by (classDate, periodNumber); anything without a match is
// dropped. If the student is already enrolled in target the moved
// enrollment is folded into that one.
func migrateEnrollment(
	ctx context.Context,
	uow interfaces.UnitOfWork,
	enrollment *domain.Enrollment,
	target *domain.CourseOffering,
) (*domain.Enrollment, mergeStats, error) {
	var stats mergeStats
	sourceID := enrollment.OfferingID

	sourceComponents, err := uow.Components().ListByOffering(ctx, sourceID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list source components: %w", err)
	}
	targetComponents, err := uow.Components().ListByOffering(ctx, target.OfferingID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list target components: %w", err)
	}
	componentMap := matchComponents(sourceComponents, targetComponents)

	marks, err := uow.Marks().ListByEnrollment(ctx, enrollment.EnrollmentID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list marks: %w", err)
	}

	result := enrollment
	existing, err := uow.Enrollments().GetByStudentAndOffering(ctx, enrollment.StudentID, target.OfferingID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to get target enrollment: %w", err)
	}
	if existing != nil {
		if err := moveMarks(ctx, uow, marks, existing.EnrollmentID, componentMap, &stats); err != nil {
			return nil, stats, err
		}
		if err := uow.Enrollments().Delete(ctx, enrollment.EnrollmentID); err != nil {
			return nil, stats, fmt.Errorf("failed to delete duplicate enrollment: %w", err)
		}
		stats.EnrollmentsDeduped++
		result = existing
	} else {
		enrollment.OfferingID = target.OfferingID
		if err := uow.Enrollments().Update(ctx, enrollment); err != nil {
			return nil, stats, fmt.Errorf("failed to re-point enrollment: %w", err)
		}
		if err := moveMarks(ctx, uow, marks, enrollment.EnrollmentID, componentMap, &stats); err != nil {
			return nil, stats, err
		}
		stats.EnrollmentsMoved++
	}

	sessions, err := uow.Sessions().ListByOffering(ctx, sourceID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list source sessions: %w", err)
	}
	for _, s := range sessions {
		record, err := uow.Records().Get(ctx, s.SessionID, enrollment.StudentID)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to get record: %w", err)
		}
		if record == nil {
			continue
		}
		match, err := uow.Sessions().GetBySlot(ctx, target.OfferingID, s.ClassDate, s.PeriodNumber)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to get target session: %w", err)
		}
		if match == nil {
			if err := uow.Records().Delete(ctx, record.RecordID); err != nil {
				return nil, stats, fmt.Errorf("failed to drop unmatched record: %w", err)
			}
			stats.RecordsDropped++
			continue
		}
		if err := carryRecord(ctx, uow, record, match.SessionID, &stats); err != nil {
			return nil, stats, err
		}
	}

	nulled, err := enforceEligibility(ctx, uow, result, nil)
	if err != nil {
		return nil, stats, err
	}
	stats.MarksNulled += len(nulled)

	return result, stats, nil
}
