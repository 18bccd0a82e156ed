package service

import (
	"context"
	"fmt"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"
	"college-records/pkg/validator"

	"github.com/google/uuid"
)

// validateRequest runs the struct tags and reports the first failure as a
// domain ValidationError
func validateRequest(req interface{}) error {
	if err := validator.ValidateStruct(req); err != nil {
		field, message := validator.FirstField(err)
		if field == "" {
			return domain.NewValidationError("", "%v", err)
		}
		return domain.NewValidationError(field, "%s", message)
	}
	return nil
}

// loadOfferingDetail resolves an offering with its course, department and section
func loadOfferingDetail(ctx context.Context, uow interfaces.UnitOfWork, offering *domain.CourseOffering) (*domain.OfferingDetail, error) {
	course, err := uow.Courses().GetByID(ctx, offering.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, domain.NewNotFoundError("course", offering.CourseID)
	}

	department, err := uow.Departments().GetByID(ctx, course.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	if department == nil {
		return nil, domain.NewNotFoundError("department", course.DepartmentID)
	}

	section, err := uow.Sections().GetByID(ctx, offering.SectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	if section == nil {
		return nil, domain.NewNotFoundError("section", offering.SectionID)
	}

	return &domain.OfferingDetail{
		Offering:   *offering,
		Course:     *course,
		Department: *department,
		Section:    *section,
	}, nil
}

func getOffering(ctx context.Context, uow interfaces.UnitOfWork, id uuid.UUID) (*domain.CourseOffering, error) {
	offering, err := uow.Offerings().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get offering: %w", err)
	}
	if offering == nil {
		return nil, domain.NewNotFoundError("offering", id)
	}
	return offering, nil
}

func getStudent(ctx context.Context, uow interfaces.UnitOfWork, id uuid.UUID) (*domain.Student, error) {
	student, err := uow.Students().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, domain.NewNotFoundError("student", id)
	}
	return student, nil
}

func getEnrollment(ctx context.Context, uow interfaces.UnitOfWork, id uuid.UUID) (*domain.Enrollment, error) {
	enrollment, err := uow.Enrollments().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, domain.NewNotFoundError("enrollment", id)
	}
	return enrollment, nil
}

// authorizeOffering lets admins through and teachers only into offerings
// assigned to them
func authorizeOffering(ctx context.Context, uow interfaces.UnitOfWork, principal *user.Principal, offering *domain.CourseOffering) error {
	if principal == nil {
		return &domain.AccessDeniedError{OfferingID: offering.OfferingID}
	}
	if principal.IsAdmin() {
		return nil
	}
	denied := &domain.AccessDeniedError{PrincipalID: principal.UserID, OfferingID: offering.OfferingID}
	if !principal.HasRole(user.RoleTeacher) || !offering.HasTeacher() {
		return denied
	}

	teacher, err := uow.Teachers().GetByUserID(ctx, principal.UserID)
	if err != nil {
		return fmt.Errorf("failed to get teacher: %w", err)
	}
	if teacher == nil || teacher.TeacherID != *offering.TeacherID {
		return denied
	}
	return nil
}

// teacherFor loads a teacher who may teach offerings of collegeID
func teacherFor(ctx context.Context, uow interfaces.UnitOfWork, teacherID, collegeID uuid.UUID) (*domain.Teacher, error) {
	teacher, err := uow.Teachers().GetByID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if teacher == nil {
		return nil, domain.NewNotFoundError("teacher", teacherID)
	}
	if teacher.CollegeID != collegeID {
		return nil, domain.NewValidationError("teacherId", "teacher %s belongs to another college", teacher.TeacherID)
	}
	return teacher, nil
}
