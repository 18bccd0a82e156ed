package service

import (
	"context"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"

	"github.com/google/uuid"
)

type RegistryService interface {
	CreateCollege(ctx context.Context, req *domain.CreateCollegeRequest) (*domain.College, error)
	CreateDepartment(ctx context.Context, req *domain.CreateDepartmentRequest) (*domain.Department, error)
	CreateSection(ctx context.Context, req *domain.CreateSectionRequest) (*domain.Section, error)
	CreateCourse(ctx context.Context, req *domain.CreateCourseRequest) (*domain.Course, error)
	CreateTerm(ctx context.Context, req *domain.CreateTermRequest) (*domain.AcademicTerm, error)
	CreateTeacher(ctx context.Context, req *domain.CreateTeacherRequest) (*domain.Teacher, error)
	CreateStudent(ctx context.Context, req *domain.CreateStudentRequest) (*domain.Student, error)
	CreateOffering(ctx context.Context, req *domain.CreateOfferingRequest) (*domain.CourseOffering, error)
	CreateComponent(ctx context.Context, req *domain.CreateComponentRequest) (*domain.TestComponent, error)
	DeleteStudent(ctx context.Context, id uuid.UUID, cascade bool) error
	DeleteOffering(ctx context.Context, id uuid.UUID, cascade bool) error
	DeleteSection(ctx context.Context, id uuid.UUID) error
}

type ReconciliationService interface {
	ReconcileOfferings(ctx context.Context, req *domain.ReconcileOfferingsRequest) (*domain.ReconcileResult, error)
	ReconcileSections(ctx context.Context, req *domain.ReconcileSectionsRequest) (*domain.ReconcileResult, error)
	AssignTeacher(ctx context.Context, offeringID uuid.UUID, req *domain.AssignTeacherRequest) (*domain.CourseOffering, error)
}

type EnrollmentService interface {
	EnsureEnrollment(ctx context.Context, req *domain.EnsureEnrollmentRequest) (*domain.EnsureEnrollmentResult, error)
	AuditPlacement(ctx context.Context, req *domain.AuditPlacementRequest) (*domain.AuditReport, error)
}

type AttendanceService interface {
	FindOrCreateSession(ctx context.Context, principal *user.Principal, req *domain.CreateSessionRequest) (*domain.SessionResult, error)
	SeedRoster(ctx context.Context, sessionID uuid.UUID) (int, error)
	GetSession(ctx context.Context, principal *user.Principal, sessionID uuid.UUID) (*domain.SessionView, error)
	SetRecordStatus(ctx context.Context, principal *user.Principal, req *domain.SetRecordStatusRequest) (*domain.RecordResult, error)
	ToggleRecord(ctx context.Context, principal *user.Principal, req *domain.ToggleRecordRequest) (*domain.RecordResult, error)
	UpdateSessionStatus(ctx context.Context, principal *user.Principal, sessionID uuid.UUID, req *domain.UpdateSessionStatusRequest) (*domain.AttendanceSession, error)
}

type MarksService interface {
	SetMark(ctx context.Context, principal *user.Principal, req *domain.SetMarkRequest) (*domain.MarkResult, error)
	Total(ctx context.Context, enrollmentID uuid.UUID, componentType domain.ComponentType) (float64, error)
	Summary(ctx context.Context, principal *user.Principal, enrollmentID uuid.UUID) (*domain.MarksSummary, error)
}

// MaintenanceService runs reconciliation jobs under a scope lock
type MaintenanceService interface {
	ReconcileOfferings(ctx context.Context, req *domain.ReconcileOfferingsRequest) (*domain.ReconcileResult, error)
	ReconcileSections(ctx context.Context, req *domain.ReconcileSectionsRequest) (*domain.ReconcileResult, error)
	AuditPlacement(ctx context.Context, req *domain.AuditPlacementRequest) (*domain.AuditReport, error)
}
