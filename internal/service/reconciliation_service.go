package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"
	serviceInterfaces "college-records/internal/interfaces/service"
	"college-records/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

var _ serviceInterfaces.ReconciliationService = (*ReconciliationService)(nil)

// ReconciliationService collapses duplicate offerings and sections created by imports
type ReconciliationService struct {
	store interfaces.Store
}

func NewReconciliationService(store interfaces.Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// recordDecision logs a decision and persists it through uow
func recordDecision(
	ctx context.Context,
	uow interfaces.UnitOfWork,
	runID uuid.UUID,
	scope string,
	d domain.Decision,
	details datatypes.JSONMap,
) error {
	fields := logrus.Fields{
		"run_id":      runID,
		"action":      d.Action,
		"scope":       scope,
		"survivor_id": d.SurvivorID,
		"donor_id":    d.DonorID,
		"reason":      d.Reason,
	}
	for k, v := range details {
		fields[k] = v
	}
	logger.WithFields(fields).Info("Reconciliation decision")

	entry := &domain.ReconciliationLog{
		LogID:   uuid.New(),
		RunID:   runID,
		Action:  d.Action,
		Scope:   scope,
		Reason:  d.Reason,
		Details: details,
	}
	if d.SurvivorID != uuid.Nil {
		survivor := d.SurvivorID
		entry.SurvivorID = &survivor
	}
	if d.DonorID != uuid.Nil {
		donor := d.DonorID
		entry.DonorID = &donor
	}
	if err := uow.ReconciliationLogs().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist reconciliation log: %w", err)
	}
	return nil
}

// offeringScope lists the offerings a reconciliation run looks at. A course
// scope widens to every course row of the department with the same code.
func (s *ReconciliationService) offeringScope(ctx context.Context, req *domain.ReconcileOfferingsRequest) ([]*domain.CourseOffering, string, error) {
	filter := interfaces.OfferingFilter{TermID: req.TermID}
	scope := "all"

	if req.CourseID != nil {
		course, err := s.store.Courses().GetByID(ctx, *req.CourseID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to get course: %w", err)
		}
		if course == nil {
			return nil, "", domain.NewNotFoundError("course", *req.CourseID)
		}
		siblings, err := s.store.Courses().ListByDepartment(ctx, course.DepartmentID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list courses: %w", err)
		}
		filter.CourseIDs = []uuid.UUID{}
		for _, c := range siblings {
			if domain.NormalizeName(c.Code) == domain.NormalizeName(course.Code) {
				filter.CourseIDs = append(filter.CourseIDs, c.CourseID)
			}
		}
		scope = "course:" + domain.NormalizeName(course.Code)
	}
	if req.TermID != nil {
		scope += "/term:" + req.TermID.String()
	}

	offerings, err := s.store.Offerings().List(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list offerings: %w", err)
	}
	return offerings, scope, nil
}

// ReconcileOfferings merges offerings that share a natural key. Each donor
// is merged in its own transaction.
func (s *ReconciliationService) ReconcileOfferings(ctx context.Context, req *domain.ReconcileOfferingsRequest) (*domain.ReconcileResult, error) {
	runID := uuid.New()
	result := &domain.ReconcileResult{RunID: runID, Decisions: []domain.Decision{}}

	offerings, scope, err := s.offeringScope(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"run_id": runID, "scope": scope, "offerings": len(offerings)}).
		Info("Starting offering reconciliation")

	groups := make(map[domain.NaturalKey][]domain.OfferingCandidate)
	for _, o := range offerings {
		detail, err := loadOfferingDetail(ctx, s.store, o)
		if err != nil {
			return nil, err
		}
		key := domain.OfferingNaturalKey(detail)
		groups[key] = append(groups[key], domain.OfferingCandidate{Detail: detail})
	}

	keys := make([]domain.NaturalKey, 0, len(groups))
	for k, g := range groups {
		if len(g) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, key := range keys {
		candidates := groups[key]
		for i := range candidates {
			count, err := s.store.Enrollments().CountByOffering(ctx, candidates[i].Detail.Offering.OfferingID)
			if err != nil {
				return nil, fmt.Errorf("failed to count enrollments: %w", err)
			}
			candidates[i].EnrollmentCount = count
		}
		domain.RankOfferings(candidates)
		survivor := candidates[0].Detail

		collapsed := false
		for _, donor := range candidates[1:] {
			decision := domain.Decision{
				Action:     domain.ActionMergeOffering,
				SurvivorID: survivor.Offering.OfferingID,
				DonorID:    donor.Detail.Offering.OfferingID,
				Reason:     fmt.Sprintf("duplicate of %s", key),
			}

			err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
				stats, err := mergeOffering(ctx, uow, survivor, donor.Detail)
				if err != nil {
					return err
				}
				return recordDecision(ctx, uow, runID, scope, decision, stats.details())
			})

			// Grouped offerings share a department, so this only guards
			// mergeOffering's own boundary check.
			var placementErr *domain.PlacementError
			if errors.As(err, &placementErr) {
				if err := s.rejectPlacement(ctx, runID, scope, decision, placementErr); err != nil {
					return nil, err
				}
				result.PlacementErrors = append(result.PlacementErrors, placementErr)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to merge offering %s into %s: %w",
					decision.DonorID, decision.SurvivorID, err)
			}

			result.Decisions = append(result.Decisions, decision)
			result.Deleted++
			collapsed = true
		}
		if collapsed {
			result.Merged++
		}
	}

	logger.WithFields(logrus.Fields{
		"run_id":           runID,
		"merged":           result.Merged,
		"deleted":          result.Deleted,
		"placement_errors": len(result.PlacementErrors),
	}).Info("Offering reconciliation finished")
	return result, nil
}

// rejectPlacement records a merge that was refused for crossing a boundary
func (s *ReconciliationService) rejectPlacement(
	ctx context.Context,
	runID uuid.UUID,
	scope string,
	attempted domain.Decision,
	placementErr *domain.PlacementError,
) error {
	rejected := attempted
	rejected.Action = domain.ActionPlacementRejected
	rejected.Reason = placementErr.Error()

	reasons := make([]interface{}, 0, len(placementErr.Reasons))
	for _, r := range placementErr.Reasons {
		reasons = append(reasons, string(r))
	}
	return s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		return recordDecision(ctx, uow, runID, scope, rejected, datatypes.JSONMap{
			"student_id": placementErr.StudentID.String(),
			"reasons":    reasons,
		})
	})
}

// ReconcileSections folds sections of one department that share a name
func (s *ReconciliationService) ReconcileSections(ctx context.Context, req *domain.ReconcileSectionsRequest) (*domain.ReconcileResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	department, err := s.store.Departments().GetByID(ctx, req.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	if department == nil {
		return nil, domain.NewNotFoundError("department", req.DepartmentID)
	}

	runID := uuid.New()
	scope := "department:" + department.Code
	result := &domain.ReconcileResult{RunID: runID, Decisions: []domain.Decision{}}

	sections, err := s.store.Sections().ListByDepartment(ctx, department.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}

	groups := make(map[string][]domain.SectionCandidate)
	var names []string
	for _, sec := range sections {
		name := domain.NormalizeName(sec.Name)
		if _, seen := groups[name]; !seen {
			names = append(names, name)
		}
		groups[name] = append(groups[name], domain.SectionCandidate{Section: *sec})
	}
	sort.Strings(names)

	for _, name := range names {
		candidates := groups[name]
		if len(candidates) < 2 {
			continue
		}
		for i := range candidates {
			id := candidates[i].Section.SectionID
			offerings, err := s.store.Offerings().List(ctx, interfaces.OfferingFilter{SectionIDs: []uuid.UUID{id}})
			if err != nil {
				return nil, fmt.Errorf("failed to list offerings: %w", err)
			}
			students, err := s.store.Students().ListBySection(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to list students: %w", err)
			}
			candidates[i].OfferingCount = int64(len(offerings))
			candidates[i].StudentCount = int64(len(students))
		}
		domain.RankSections(candidates)
		survivor := candidates[0].Section

		for _, donor := range candidates[1:] {
			decision := domain.Decision{
				Action:     domain.ActionMergeSection,
				SurvivorID: survivor.SectionID,
				DonorID:    donor.Section.SectionID,
				Reason:     fmt.Sprintf("duplicate section %q (score %d vs %d)", name, candidates[0].Score(), donor.Score()),
			}
			var folded []domain.Decision
			err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
				folded = folded[:0]
				details, folds, err := mergeSection(ctx, uow, &survivor, &donor.Section)
				if err != nil {
					return err
				}
				if err := recordDecision(ctx, uow, runID, scope, decision, details); err != nil {
					return err
				}
				for _, f := range folds {
					d := domain.Decision{
						Action:     domain.ActionMergeOffering,
						SurvivorID: f.survivor,
						DonorID:    f.donor,
						Reason:     fmt.Sprintf("offerings collided after folding section %q", name),
					}
					if err := recordDecision(ctx, uow, runID, scope, d, f.stats.details()); err != nil {
						return err
					}
					folded = append(folded, d)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to merge section %s into %s: %w", decision.DonorID, decision.SurvivorID, err)
			}
			result.Decisions = append(result.Decisions, decision)
			result.Decisions = append(result.Decisions, folded...)
			result.Deleted++
		}
		result.Merged++
	}

	logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"scope":   scope,
		"merged":  result.Merged,
		"deleted": result.Deleted,
	}).Info("Section reconciliation finished")
	return result, nil
}

// offeringFold is one offering merged away while folding a section
type offeringFold struct {
	survivor uuid.UUID
	donor    uuid.UUID
	stats    mergeStats
}

// mergeSection re-points the donor's students and offerings and deletes it.
// Offerings that end up sharing a natural key in the survivor are merged in
// the same transaction.
func mergeSection(ctx context.Context, uow interfaces.UnitOfWork, survivor, donor *domain.Section) (datatypes.JSONMap, []offeringFold, error) {
	if survivor.DepartmentID != donor.DepartmentID {
		return nil, nil, domain.NewValidationError("departmentId", "sections %s and %s belong to different departments",
			survivor.SectionID, donor.SectionID)
	}

	students, err := uow.Students().ListBySection(ctx, donor.SectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list students: %w", err)
	}
	for _, st := range students {
		st.SectionID = survivor.SectionID
		if err := uow.Students().Update(ctx, st); err != nil {
			return nil, nil, fmt.Errorf("failed to move student %s: %w", st.StudentID, err)
		}
	}

	offerings, err := uow.Offerings().List(ctx, interfaces.OfferingFilter{SectionIDs: []uuid.UUID{donor.SectionID}})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list offerings: %w", err)
	}
	for _, o := range offerings {
		o.SectionID = survivor.SectionID
		if err := uow.Offerings().Update(ctx, o); err != nil {
			return nil, nil, fmt.Errorf("failed to move offering %s: %w", o.OfferingID, err)
		}
	}

	var folds []offeringFold
	if len(offerings) > 0 {
		if folds, err = foldSectionOfferings(ctx, uow, survivor.SectionID); err != nil {
			return nil, nil, err
		}
	}

	if err := uow.Sections().Delete(ctx, donor.SectionID); err != nil {
		return nil, nil, fmt.Errorf("failed to delete section: %w", err)
	}
	return datatypes.JSONMap{
		"students_moved":   len(students),
		"offerings_moved":  len(offerings),
		"offerings_merged": len(folds),
	}, folds, nil
}

// foldSectionOfferings merges offerings of one section that share a natural key
func foldSectionOfferings(ctx context.Context, uow interfaces.UnitOfWork, sectionID uuid.UUID) ([]offeringFold, error) {
	offerings, err := uow.Offerings().List(ctx, interfaces.OfferingFilter{SectionIDs: []uuid.UUID{sectionID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list offerings: %w", err)
	}

	groups := make(map[domain.NaturalKey][]domain.OfferingCandidate)
	var keys []domain.NaturalKey
	for _, o := range offerings {
		detail, err := loadOfferingDetail(ctx, uow, o)
		if err != nil {
			return nil, err
		}
		count, err := uow.Enrollments().CountByOffering(ctx, o.OfferingID)
		if err != nil {
			return nil, fmt.Errorf("failed to count enrollments: %w", err)
		}
		key := domain.OfferingNaturalKey(detail)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], domain.OfferingCandidate{Detail: detail, EnrollmentCount: count})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var folds []offeringFold
	for _, key := range keys {
		candidates := groups[key]
		if len(candidates) < 2 {
			continue
		}
		domain.RankOfferings(candidates)
		survivor := candidates[0].Detail
		for _, donor := range candidates[1:] {
			stats, err := mergeOffering(ctx, uow, survivor, donor.Detail)
			if err != nil {
				return nil, fmt.Errorf("failed to merge offering %s into %s: %w",
					donor.Detail.Offering.OfferingID, survivor.Offering.OfferingID, err)
			}
			folds = append(folds, offeringFold{
				survivor: survivor.Offering.OfferingID,
				donor:    donor.Detail.Offering.OfferingID,
				stats:    stats,
			})
		}
	}
	return folds, nil
}

// AssignTeacher sets or clears the teacher of an offering
func (s *ReconciliationService) AssignTeacher(ctx context.Context, offeringID uuid.UUID, req *domain.AssignTeacherRequest) (*domain.CourseOffering, error) {
	var updated *domain.CourseOffering
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		offering, err := uow.Offerings().GetByIDForUpdate(ctx, offeringID)
		if err != nil {
			return fmt.Errorf("failed to get offering: %w", err)
		}
		if offering == nil {
			return domain.NewNotFoundError("offering", offeringID)
		}

		reason := "teacher cleared"
		if req.TeacherID != nil {
			detail, err := loadOfferingDetail(ctx, uow, offering)
			if err != nil {
				return err
			}
			teacher, err := teacherFor(ctx, uow, *req.TeacherID, detail.Department.CollegeID)
			if err != nil {
				return err
			}
			reason = "teacher assigned: " + teacher.Name
		}

		offering.TeacherID = req.TeacherID
		if err := uow.Offerings().Update(ctx, offering); err != nil {
			return fmt.Errorf("failed to update offering: %w", err)
		}
		updated = offering

		details := datatypes.JSONMap{}
		if req.TeacherID != nil {
			details["teacher_id"] = req.TeacherID.String()
		}
		return recordDecision(ctx, uow, uuid.New(), "offering:"+offeringID.String(), domain.Decision{
			Action:     domain.ActionAssignTeacher,
			SurvivorID: offeringID,
			Reason:     reason,
		}, details)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
