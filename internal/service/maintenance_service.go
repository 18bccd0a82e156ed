package service

import (
	"context"
	"fmt"
	"time"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"
	serviceInterfaces "college-records/internal/interfaces/service"
	"college-records/pkg/logger"

	"github.com/google/uuid"
)

var _ serviceInterfaces.MaintenanceService = (*MaintenanceService)(nil)

// maintenanceLockKey is shared by every job: reconciliation scopes overlap
// and the audit fix path migrates enrollments between offerings.
const maintenanceLockKey = "jobs"

// MaintenanceService is the entry point used by the admin endpoints and the
// CLI. Jobs run one at a time under the scope lock.
type MaintenanceService struct {
	store       interfaces.Store
	locker      interfaces.Locker
	reconciler  serviceInterfaces.ReconciliationService
	enrollments serviceInterfaces.EnrollmentService
	ttl         time.Duration
}

func NewMaintenanceService(
	store interfaces.Store,
	locker interfaces.Locker,
	reconciler serviceInterfaces.ReconciliationService,
	enrollments serviceInterfaces.EnrollmentService,
	ttl time.Duration,
) *MaintenanceService {
	return &MaintenanceService{
		store:       store,
		locker:      locker,
		reconciler:  reconciler,
		enrollments: enrollments,
		ttl:         ttl,
	}
}

func (s *MaintenanceService) withLock(ctx context.Context, job string, fn func() error) error {
	token, ok, err := s.locker.TryLock(ctx, maintenanceLockKey, s.ttl)
	if err != nil {
		return fmt.Errorf("failed to acquire maintenance lock: %w", err)
	}
	if !ok {
		return domain.NewConflictError("maintenance", maintenanceLockKey, "another maintenance job is running")
	}
	defer func() {
		if err := s.locker.Unlock(context.Background(), maintenanceLockKey, token); err != nil {
			logger.Warn("Failed to release maintenance lock after %s: %v", job, err)
		}
	}()

	logger.Info("Maintenance job started: %s", job)
	return fn()
}

// ReconcileOfferings first collapses duplicate sections in every department
// the offering scope touches, since section merges can produce offering
// duplicates.
func (s *MaintenanceService) ReconcileOfferings(ctx context.Context, req *domain.ReconcileOfferingsRequest) (*domain.ReconcileResult, error) {
	var result *domain.ReconcileResult
	err := s.withLock(ctx, "reconcile-offerings", func() error {
		departments, err := s.departmentsInScope(ctx, req)
		if err != nil {
			return err
		}

		var sections []*domain.ReconcileResult
		for _, id := range departments {
			r, err := s.reconciler.ReconcileSections(ctx, &domain.ReconcileSectionsRequest{DepartmentID: id})
			if err != nil {
				return err
			}
			sections = append(sections, r)
		}

		result, err = s.reconciler.ReconcileOfferings(ctx, req)
		if err != nil {
			return err
		}
		result.Sections = sections
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MaintenanceService) departmentsInScope(ctx context.Context, req *domain.ReconcileOfferingsRequest) ([]uuid.UUID, error) {
	if req.CourseID != nil {
		course, err := s.store.Courses().GetByID(ctx, *req.CourseID)
		if err != nil {
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		if course == nil {
			return nil, domain.NewNotFoundError("course", *req.CourseID)
		}
		return []uuid.UUID{course.DepartmentID}, nil
	}

	offerings, err := s.store.Offerings().List(ctx, interfaces.OfferingFilter{TermID: req.TermID})
	if err != nil {
		return nil, fmt.Errorf("failed to list offerings: %w", err)
	}
	seenCourse := make(map[uuid.UUID]bool)
	seenDepartment := make(map[uuid.UUID]bool)
	var departments []uuid.UUID
	for _, o := range offerings {
		if seenCourse[o.CourseID] {
			continue
		}
		seenCourse[o.CourseID] = true
		course, err := s.store.Courses().GetByID(ctx, o.CourseID)
		if err != nil {
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		if course == nil || seenDepartment[course.DepartmentID] {
			continue
		}
		seenDepartment[course.DepartmentID] = true
		departments = append(departments, course.DepartmentID)
	}
	return departments, nil
}

func (s *MaintenanceService) ReconcileSections(ctx context.Context, req *domain.ReconcileSectionsRequest) (*domain.ReconcileResult, error) {
	var result *domain.ReconcileResult
	err := s.withLock(ctx, "reconcile-sections", func() error {
		var err error
		result, err = s.reconciler.ReconcileSections(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MaintenanceService) AuditPlacement(ctx context.Context, req *domain.AuditPlacementRequest) (*domain.AuditReport, error) {
	var report *domain.AuditReport
	err := s.withLock(ctx, "audit-placement", func() error {
		var err error
		report, err = s.enrollments.AuditPlacement(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
