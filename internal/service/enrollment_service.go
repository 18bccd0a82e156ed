package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"
	serviceInterfaces "college-records/internal/interfaces/service"
	"college-records/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ serviceInterfaces.EnrollmentService = (*EnrollmentService)(nil)

// EnrollmentService keeps each student enrolled in their own section's offering
type EnrollmentService struct {
	store interfaces.Store
	now   func() time.Time
}

func NewEnrollmentService(store interfaces.Store) *EnrollmentService {
	return &EnrollmentService{store: store, now: time.Now}
}

func (s *EnrollmentService) resolveTerm(ctx context.Context, uow interfaces.UnitOfWork, termID *uuid.UUID) (*domain.AcademicTerm, error) {
	if termID != nil {
		term, err := uow.Terms().GetByID(ctx, *termID)
		if err != nil {
			return nil, fmt.Errorf("failed to get academic term: %w", err)
		}
		if term == nil {
			return nil, domain.NewNotFoundError("academic_term", *termID)
		}
		return term, nil
	}

	term, err := uow.Terms().GetCurrent(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get current academic term: %w", err)
	}
	if term == nil {
		return nil, domain.NewNotFoundError("academic_term", "current")
	}
	return term, nil
}

// EnsureEnrollment returns, migrates or creates the student's enrollment in
// the offering of the course for their section and term.
func (s *EnrollmentService) EnsureEnrollment(ctx context.Context, req *domain.EnsureEnrollmentRequest) (*domain.EnsureEnrollmentResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var result *domain.EnsureEnrollmentResult
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		student, err := getStudent(ctx, uow, req.StudentID)
		if err != nil {
			return err
		}
		course, err := uow.Courses().GetByID(ctx, req.CourseID)
		if err != nil {
			return fmt.Errorf("failed to get course: %w", err)
		}
		if course == nil {
			return domain.NewNotFoundError("course", req.CourseID)
		}
		department, err := uow.Departments().GetByID(ctx, course.DepartmentID)
		if err != nil {
			return fmt.Errorf("failed to get department: %w", err)
		}
		if department == nil {
			return domain.NewNotFoundError("department", course.DepartmentID)
		}

		var reasons []domain.PlacementReason
		if department.CollegeID != student.CollegeID {
			reasons = append(reasons, domain.ReasonCollegeMismatch)
		}
		if course.DepartmentID != student.DepartmentID {
			reasons = append(reasons, domain.ReasonDepartmentMismatch)
		}
		if len(reasons) > 0 {
			return domain.NewPlacementError(student.StudentID, uuid.Nil, reasons...)
		}

		term, err := s.resolveTerm(ctx, uow, req.TermID)
		if err != nil {
			return err
		}

		target, err := findSectionOffering(ctx, uow, course.CourseID, student.SectionID, term.AcademicTermID)
		if err != nil {
			var noMatch *domain.NoMatchingOfferingError
			if errors.As(err, &noMatch) {
				noMatch.StudentID = student.StudentID
			}
			return err
		}

		existing, err := uow.Enrollments().GetByStudentAndOffering(ctx, student.StudentID, target.OfferingID)
		if err != nil {
			return fmt.Errorf("failed to get enrollment: %w", err)
		}
		if existing != nil {
			result = &domain.EnsureEnrollmentResult{Enrollment: *existing, Action: domain.EnrollmentExisting}
			return nil
		}

		enrollments, err := uow.Enrollments().ListByStudent(ctx, student.StudentID)
		if err != nil {
			return fmt.Errorf("failed to list enrollments: %w", err)
		}

		var misplaced []*domain.Enrollment
		prior := 0
		for _, e := range enrollments {
			offering, err := getOffering(ctx, uow, e.OfferingID)
			if err != nil {
				return err
			}
			if offering.CourseID != course.CourseID {
				continue
			}
			if offering.AcademicTermID == term.AcademicTermID {
				misplaced = append(misplaced, e)
				continue
			}
			prior++
		}

		if len(misplaced) > 0 {
			runID := uuid.New()
			var migrated *domain.Enrollment
			for _, e := range misplaced {
				from := e.OfferingID
				enrollment, stats, err := migrateEnrollment(ctx, uow, e, target)
				if err != nil {
					return err
				}
				migrated = enrollment
				err = recordDecision(ctx, uow, runID, "student:"+student.USN, domain.Decision{
					Action:     domain.ActionMigrateEnrollment,
					SurvivorID: target.OfferingID,
					DonorID:    from,
					Reason:     "enrollment outside the student's section",
				}, stats.details())
				if err != nil {
					return err
				}
			}
			result = &domain.EnsureEnrollmentResult{Enrollment: *migrated, Action: domain.EnrollmentMigrated}
			return nil
		}

		enrollment := &domain.Enrollment{
			EnrollmentID:  uuid.New(),
			StudentID:     student.StudentID,
			OfferingID:    target.OfferingID,
			AttemptNumber: 1 + prior,
		}
		if err := uow.Enrollments().Create(ctx, enrollment); err != nil {
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
		result = &domain.EnsureEnrollmentResult{Enrollment: *enrollment, Action: domain.EnrollmentCreated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"student_id":    req.StudentID,
		"course_id":     req.CourseID,
		"enrollment_id": result.Enrollment.EnrollmentID,
		"action":        result.Action,
	}).Info("Enrollment ensured")
	return result, nil
}

// findSectionOffering returns the single offering of course for section in
// term. Several matches mean the offerings need reconciling first.
func findSectionOffering(ctx context.Context, uow interfaces.UnitOfWork, courseID, sectionID, termID uuid.UUID) (*domain.CourseOffering, error) {
	candidates, err := uow.Offerings().List(ctx, interfaces.OfferingFilter{
		CourseIDs:  []uuid.UUID{courseID},
		SectionIDs: []uuid.UUID{sectionID},
		TermID:     &termID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list offerings: %w", err)
	}
	switch len(candidates) {
	case 0:
		return nil, &domain.NoMatchingOfferingError{CourseID: courseID, SectionID: sectionID, TermID: termID}
	case 1:
		return candidates[0], nil
	}
	return nil, domain.NewConflictError("offering", fmt.Sprintf("%s/%s/%s", courseID, sectionID, termID),
		"%d offerings match; reconcile offerings first", len(candidates))
}

// AuditPlacement reports misplaced enrollments of a semester and, with Fix,
// moves section mismatches into the student's own section offering.
func (s *EnrollmentService) AuditPlacement(ctx context.Context, req *domain.AuditPlacementRequest) (*domain.AuditReport, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rows, err := s.store.PlacementRows(ctx, domain.PlacementFilter{Semester: req.Semester, CollegeID: req.CollegeID})
	if err != nil {
		return nil, err
	}

	report := &domain.AuditReport{
		RunID:      uuid.New(),
		Semester:   req.Semester,
		Checked:    len(rows),
		Violations: []domain.PlacementViolation{},
	}

	for _, row := range rows {
		reasons := row.Reasons()
		if len(reasons) == 0 {
			continue
		}
		v := domain.PlacementViolation{
			EnrollmentID: row.EnrollmentID,
			StudentID:    row.StudentID,
			USN:          row.USN,
			OfferingID:   row.OfferingID,
			CourseCode:   row.CourseCode,
			Reasons:      reasons,
		}

		switch {
		case !req.Fix:
		case len(domain.CrossesBoundary(reasons)) > 0:
			v.Note = "college and department mismatches are never fixed automatically"
		default:
			if err := s.fixSection(ctx, report.RunID, row, &v); err != nil {
				return nil, err
			}
		}
		if v.Fixed {
			report.Fixed++
		}
		report.Violations = append(report.Violations, v)
	}

	logger.WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"semester":   report.Semester,
		"checked":    report.Checked,
		"violations": len(report.Violations),
		"fixed":      report.Fixed,
	}).Info("Placement audit finished")
	return report, nil
}

func (s *EnrollmentService) fixSection(ctx context.Context, runID uuid.UUID, row domain.PlacementRow, v *domain.PlacementViolation) error {
	return s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		enrollment, err := uow.Enrollments().GetByID(ctx, row.EnrollmentID)
		if err != nil {
			return fmt.Errorf("failed to get enrollment: %w", err)
		}
		if enrollment == nil {
			v.Note = "enrollment no longer exists"
			return nil
		}

		candidates, err := uow.Offerings().List(ctx, interfaces.OfferingFilter{
			CourseIDs:  []uuid.UUID{row.CourseID},
			SectionIDs: []uuid.UUID{row.StudentSectionID},
			TermID:     &row.AcademicTermID,
		})
		if err != nil {
			return fmt.Errorf("failed to list offerings: %w", err)
		}
		if len(candidates) != 1 {
			v.Note = fmt.Sprintf("no unique offering for the student's section (%d candidates)", len(candidates))
			return nil
		}

		target := candidates[0]
		_, stats, err := migrateEnrollment(ctx, uow, enrollment, target)
		if err != nil {
			return err
		}
		if err := recordDecision(ctx, uow, runID, "student:"+row.USN, domain.Decision{
			Action:     domain.ActionMigrateEnrollment,
			SurvivorID: target.OfferingID,
			DonorID:    row.OfferingID,
			Reason:     string(domain.ReasonSectionMismatch),
		}, stats.details()); err != nil {
			return err
		}

		v.Fixed = true
		v.FixedOfferingID = &target.OfferingID
		return nil
	})
}
