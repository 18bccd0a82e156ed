package interfaces

import (
	"context"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"

	"github.com/google/uuid"
)

// Lookups return (nil, nil) when the row does not exist.

type CollegeRepository interface {
	Create(ctx context.Context, college *domain.College) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.College, error)
	GetByCode(ctx context.Context, code string) (*domain.College, error)
}

type DepartmentRepository interface {
	Create(ctx context.Context, department *domain.Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error)
	GetByCollegeAndCode(ctx context.Context, collegeID uuid.UUID, code string) (*domain.Department, error)
	ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]*domain.Department, error)
}

type SectionRepository interface {
	Create(ctx context.Context, section *domain.Section) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Section, error)
	ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Section, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	GetByDepartmentAndCode(ctx context.Context, departmentID uuid.UUID, code string) (*domain.Course, error)
	ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Course, error)
}

type TermRepository interface {
	Create(ctx context.Context, term *domain.AcademicTerm) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AcademicTerm, error)
	GetByCode(ctx context.Context, code string) (*domain.AcademicTerm, error)
	// GetCurrent returns the latest-starting term whose date range contains at.
	GetCurrent(ctx context.Context, at time.Time) (*domain.AcademicTerm, error)
}

type TeacherRepository interface {
	Create(ctx context.Context, teacher *domain.Teacher) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Teacher, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Teacher, error)
}

type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error)
	GetByUSN(ctx context.Context, usn string) (*domain.Student, error)
	ListBySection(ctx context.Context, sectionID uuid.UUID) ([]*domain.Student, error)
	Update(ctx context.Context, student *domain.Student) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OfferingFilter narrows List; zero fields match everything
type OfferingFilter struct {
	CourseIDs  []uuid.UUID
	SectionIDs []uuid.UUID
	TermID     *uuid.UUID
}

type OfferingRepository interface {
	Create(ctx context.Context, offering *domain.CourseOffering) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CourseOffering, error)
	// GetByIDForUpdate row-locks the offering for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CourseOffering, error)
	List(ctx context.Context, filter OfferingFilter) ([]*domain.CourseOffering, error)
	Update(ctx context.Context, offering *domain.CourseOffering) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *domain.Enrollment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error)
	GetByStudentAndOffering(ctx context.Context, studentID, offeringID uuid.UUID) (*domain.Enrollment, error)
	ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.Enrollment, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Enrollment, error)
	CountByOffering(ctx context.Context, offeringID uuid.UUID) (int64, error)
	Update(ctx context.Context, enrollment *domain.Enrollment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionRepository interface {
	// CreateIfAbsent inserts unless (offering, date, period) already exists.
	CreateIfAbsent(ctx context.Context, session *domain.AttendanceSession) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AttendanceSession, error)
	GetBySlot(ctx context.Context, offeringID uuid.UUID, classDate time.Time, period int) (*domain.AttendanceSession, error)
	ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.AttendanceSession, error)
	Update(ctx context.Context, session *domain.AttendanceSession) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RecordRepository interface {
	// Upsert writes the status for (session, student), inserting or updating.
	Upsert(ctx context.Context, record *domain.AttendanceRecord) error
	// CreateIfAbsent inserts unless (session, student) already has a record.
	CreateIfAbsent(ctx context.Context, record *domain.AttendanceRecord) (bool, error)
	Get(ctx context.Context, sessionID, studentID uuid.UUID) (*domain.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.AttendanceRecord, error)
	Update(ctx context.Context, record *domain.AttendanceRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ComponentRepository interface {
	Create(ctx context.Context, component *domain.TestComponent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TestComponent, error)
	ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.TestComponent, error)
	Update(ctx context.Context, component *domain.TestComponent) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type MarkRepository interface {
	// Upsert writes MarksObtained for (enrollment, component), inserting or updating.
	Upsert(ctx context.Context, mark *domain.StudentMark) error
	Get(ctx context.Context, enrollmentID, componentID uuid.UUID) (*domain.StudentMark, error)
	ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]*domain.StudentMark, error)
	Update(ctx context.Context, mark *domain.StudentMark) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReconciliationLogRepository interface {
	Create(ctx context.Context, entry *domain.ReconciliationLog) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationLog, error)
}

// UnitOfWork exposes every repository bound to one connection or transaction
type UnitOfWork interface {
	Colleges() CollegeRepository
	Departments() DepartmentRepository
	Sections() SectionRepository
	Courses() CourseRepository
	Terms() TermRepository
	Teachers() TeacherRepository
	Students() StudentRepository
	Offerings() OfferingRepository
	Enrollments() EnrollmentRepository
	Sessions() SessionRepository
	Records() RecordRepository
	Components() ComponentRepository
	Marks() MarkRepository
	ReconciliationLogs() ReconciliationLogRepository
	Users() user.UserRepository
}

// Store is the injected persistence handle
type Store interface {
	UnitOfWork
	// Transaction runs fn atomically; any returned error rolls everything back.
	Transaction(ctx context.Context, fn func(uow UnitOfWork) error) error
	// PlacementRows joins students of a semester with their enrollments.
	PlacementRows(ctx context.Context, filter domain.PlacementFilter) ([]domain.PlacementRow, error)
	Health(ctx context.Context) error
}
