package service

import (
	"context"
	"testing"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	"college-records/internal/infrastructure/repository/memory"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	termStart = time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	termEnd   = time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)
	today     = time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)
)

// campus seeds rows straight through the repositories so tests can create
// the duplicates an import would produce
type campus struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store

	college    *domain.College
	department *domain.Department
	term       *domain.AcademicTerm
	admin      *user.Principal
}

func newCampus(t *testing.T) *campus {
	t.Helper()
	c := &campus{
		t:     t,
		ctx:   context.Background(),
		store: memory.NewStore(),
		admin: &user.Principal{UserID: uuid.New(), Roles: []user.Role{user.RoleAdmin}},
	}
	c.college = c.newCollege("RVCE")
	c.department = c.newDepartment(c.college, "CSE")
	c.term = &domain.AcademicTerm{AcademicTermID: uuid.New(), Code: "2026-ODD", Name: "Odd 2026", StartDate: termStart, EndDate: termEnd}
	require.NoError(t, c.store.Terms().Create(c.ctx, c.term))
	return c
}

func (c *campus) newCollege(code string) *domain.College {
	college := &domain.College{CollegeID: uuid.New(), Code: code, Name: code}
	require.NoError(c.t, c.store.Colleges().Create(c.ctx, college))
	return college
}

func (c *campus) newDepartment(college *domain.College, code string) *domain.Department {
	department := &domain.Department{DepartmentID: uuid.New(), CollegeID: college.CollegeID, Code: code, Name: code}
	require.NoError(c.t, c.store.Departments().Create(c.ctx, department))
	return department
}

func (c *campus) newSection(department *domain.Department, name string, createdAt time.Time) *domain.Section {
	section := &domain.Section{SectionID: uuid.New(), DepartmentID: department.DepartmentID, Name: name, CreatedAt: createdAt}
	require.NoError(c.t, c.store.Sections().Create(c.ctx, section))
	return section
}

func (c *campus) newCourse(department *domain.Department, code string, lab bool) *domain.Course {
	course := &domain.Course{
		CourseID:           uuid.New(),
		DepartmentID:       department.DepartmentID,
		Code:               code,
		Name:               code,
		Credits:            4,
		HasTheoryComponent: true,
		HasLabComponent:    lab,
	}
	require.NoError(c.t, c.store.Courses().Create(c.ctx, course))
	return course
}

// newTeacher returns the teacher row and the principal of its user account
func (c *campus) newTeacher(department *domain.Department, name string) (*domain.Teacher, *user.Principal) {
	principal := &user.Principal{UserID: uuid.New(), Username: name, Roles: []user.Role{user.RoleTeacher}}
	teacher := &domain.Teacher{
		TeacherID:    uuid.New(),
		UserID:       principal.UserID,
		CollegeID:    department.CollegeID,
		DepartmentID: department.DepartmentID,
		Name:         name,
	}
	require.NoError(c.t, c.store.Teachers().Create(c.ctx, teacher))
	return teacher, principal
}

func (c *campus) newOffering(course *domain.Course, section *domain.Section, teacher *domain.Teacher, createdAt time.Time) *domain.CourseOffering {
	offering := &domain.CourseOffering{
		OfferingID:     uuid.New(),
		CourseID:       course.CourseID,
		SectionID:      section.SectionID,
		AcademicTermID: c.term.AcademicTermID,
		Semester:       5,
		CreatedAt:      createdAt,
	}
	if teacher != nil {
		offering.TeacherID = &teacher.TeacherID
	}
	require.NoError(c.t, c.store.Offerings().Create(c.ctx, offering))
	return offering
}

func (c *campus) newStudent(section *domain.Section, usn string) *domain.Student {
	department, err := c.store.Departments().GetByID(c.ctx, section.DepartmentID)
	require.NoError(c.t, err)
	require.NotNil(c.t, department)
	student := &domain.Student{
		StudentID:    uuid.New(),
		UserID:       uuid.New(),
		CollegeID:    department.CollegeID,
		DepartmentID: department.DepartmentID,
		SectionID:    section.SectionID,
		USN:          usn,
		Name:         usn,
		Semester:     5,
	}
	require.NoError(c.t, c.store.Students().Create(c.ctx, student))
	return student
}

func (c *campus) enroll(student *domain.Student, offering *domain.CourseOffering) *domain.Enrollment {
	enrollment := &domain.Enrollment{EnrollmentID: uuid.New(), StudentID: student.StudentID, OfferingID: offering.OfferingID, AttemptNumber: 1}
	require.NoError(c.t, c.store.Enrollments().Create(c.ctx, enrollment))
	return enrollment
}

func (c *campus) newComponent(offering *domain.CourseOffering, name string, kind domain.ComponentType, maxMarks, weightage float64) *domain.TestComponent {
	component := &domain.TestComponent{
		ComponentID: uuid.New(),
		OfferingID:  offering.OfferingID,
		Name:        name,
		Type:        kind,
		MaxMarks:    maxMarks,
		Weightage:   weightage,
	}
	require.NoError(c.t, c.store.Components().Create(c.ctx, component))
	return component
}

// conditional makes component creditable only while first+second < threshold
func (c *campus) conditional(component, first, second *domain.TestComponent, threshold float64) {
	component.ConditionFirstID = &first.ComponentID
	component.ConditionSecondID = &second.ComponentID
	component.ConditionThreshold = &threshold
	require.NoError(c.t, c.store.Components().Update(c.ctx, component))
}

func (c *campus) setMark(enrollment *domain.Enrollment, component *domain.TestComponent, value float64) {
	require.NoError(c.t, c.store.Marks().Upsert(c.ctx, &domain.StudentMark{
		MarkID:          uuid.New(),
		EnrollmentID:    enrollment.EnrollmentID,
		TestComponentID: component.ComponentID,
		MarksObtained:   &value,
	}))
}

func (c *campus) markOf(enrollmentID, componentID uuid.UUID) *domain.StudentMark {
	mark, err := c.store.Marks().Get(c.ctx, enrollmentID, componentID)
	require.NoError(c.t, err)
	return mark
}

func (c *campus) offeringsOf(course *domain.Course) []*domain.CourseOffering {
	offerings, err := c.store.Offerings().List(c.ctx, interfaces.OfferingFilter{CourseIDs: []uuid.UUID{course.CourseID}})
	require.NoError(c.t, err)
	return offerings
}

func ptr[T any](v T) *T { return &v }
