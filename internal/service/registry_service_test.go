package service

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	"college-records/internal/infrastructure/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuildsConsistentHierarchy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewRegistryService(store)

	college, err := svc.CreateCollege(ctx, &domain.CreateCollegeRequest{Code: "RVCE", Name: "RV College of Engineering"})
	require.NoError(t, err)
	_, err = svc.CreateCollege(ctx, &domain.CreateCollegeRequest{Code: "RVCE", Name: "Again"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	department, err := svc.CreateDepartment(ctx, &domain.CreateDepartmentRequest{CollegeID: college.CollegeID, Code: "CSE", Name: "Computer Science"})
	require.NoError(t, err)

	section, err := svc.CreateSection(ctx, &domain.CreateSectionRequest{DepartmentID: department.DepartmentID, Name: "A"})
	require.NoError(t, err)
	_, err = svc.CreateSection(ctx, &domain.CreateSectionRequest{DepartmentID: department.DepartmentID, Name: " a "})
	assert.True(t, errors.Is(err, domain.ErrConflict), "section names compare normalized")

	course, err := svc.CreateCourse(ctx, &domain.CreateCourseRequest{DepartmentID: department.DepartmentID, Code: "CS301", Name: "Operating Systems", Credits: 4, HasLabComponent: true})
	require.NoError(t, err)
	assert.True(t, course.HasTheoryComponent)
	assert.True(t, course.HasLabComponent)

	term, err := svc.CreateTerm(ctx, &domain.CreateTermRequest{
		Code:      "2026-ODD",
		Name:      "Odd 2026",
		StartDate: domain.NewDate(2026, time.August, 1),
		EndDate:   domain.NewDate(2026, time.December, 31),
	})
	require.NoError(t, err)

	credentials := NewCredentialService(store, TokenConfig{Secret: "s", Issuer: "test", TTL: time.Hour})
	credentials.cost = 4
	account, err := credentials.CreateUser(ctx, &user.CreateUserRequest{Username: "ravi", Password: "correct-horse", Role: "teacher"})
	require.NoError(t, err)

	teacher, err := svc.CreateTeacher(ctx, &domain.CreateTeacherRequest{UserID: account.ID, DepartmentID: department.DepartmentID, Name: "Ravi"})
	require.NoError(t, err)
	assert.Equal(t, college.CollegeID, teacher.CollegeID)

	student, err := svc.CreateStudent(ctx, &domain.CreateStudentRequest{UserID: uuid.New(), SectionID: section.SectionID, USN: "1rv23cs001", Name: "Anu", Semester: 5})
	require.NoError(t, err)
	assert.Equal(t, "1RV23CS001", student.USN)
	assert.Equal(t, department.DepartmentID, student.DepartmentID)
	assert.Equal(t, college.CollegeID, student.CollegeID)

	offeringReq := &domain.CreateOfferingRequest{
		CourseID:       course.CourseID,
		SectionID:      section.SectionID,
		AcademicTermID: term.AcademicTermID,
		Semester:       5,
		TeacherID:      &teacher.TeacherID,
	}
	offering, err := svc.CreateOffering(ctx, offeringReq)
	require.NoError(t, err)
	_, err = svc.CreateOffering(ctx, offeringReq)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	cie1, err := svc.CreateComponent(ctx, &domain.CreateComponentRequest{OfferingID: offering.OfferingID, Name: "CIE1", Type: "theory", MaxMarks: 20, Weightage: 20})
	require.NoError(t, err)
	cie2, err := svc.CreateComponent(ctx, &domain.CreateComponentRequest{OfferingID: offering.OfferingID, Name: "CIE2", Type: "theory", MaxMarks: 20, Weightage: 20})
	require.NoError(t, err)
	cie3, err := svc.CreateComponent(ctx, &domain.CreateComponentRequest{
		OfferingID:         offering.OfferingID,
		Name:               "CIE3",
		Type:               "theory",
		MaxMarks:           20,
		Weightage:          20,
		ConditionFirstID:   &cie1.ComponentID,
		ConditionSecondID:  &cie2.ComponentID,
		ConditionThreshold: ptr(20.0),
	})
	require.NoError(t, err)
	_, conditional := cie3.Condition()
	assert.True(t, conditional)

	_, err = svc.CreateComponent(ctx, &domain.CreateComponentRequest{OfferingID: offering.OfferingID, Name: "cie1", Type: "theory", MaxMarks: 20})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegistry_ValidationFailures(t *testing.T) {
	c := newCampus(t)
	svc := NewRegistryService(c.store)
	theoryOnly := c.newCourse(c.department, "CS302", false)
	section := c.newSection(c.department, "A", termStart)
	offering := c.newOffering(theoryOnly, section, nil, termStart)

	cases := []struct {
		name  string
		run   func() error
		field string
	}{
		{
			name: "missing code",
			run: func() error {
				_, err := svc.CreateCollege(c.ctx, &domain.CreateCollegeRequest{Name: "No code"})
				return err
			},
			field: "code",
		},
		{
			name: "course without components",
			run: func() error {
				_, err := svc.CreateCourse(c.ctx, &domain.CreateCourseRequest{DepartmentID: c.department.DepartmentID, Code: "X1", Name: "X", HasTheoryComponent: ptr(false)})
				return err
			},
			field: "hasTheoryComponent",
		},
		{
			name: "term ends before it starts",
			run: func() error {
				_, err := svc.CreateTerm(c.ctx, &domain.CreateTermRequest{Code: "BAD", Name: "Bad", StartDate: domain.NewDate(2026, 6, 1), EndDate: domain.NewDate(2026, 5, 1)})
				return err
			},
			field: "endDate",
		},
		{
			name: "lab component on theory course",
			run: func() error {
				_, err := svc.CreateComponent(c.ctx, &domain.CreateComponentRequest{OfferingID: offering.OfferingID, Name: "LAB", Type: "lab", MaxMarks: 50})
				return err
			},
			field: "type",
		},
		{
			name: "zero max marks",
			run: func() error {
				_, err := svc.CreateComponent(c.ctx, &domain.CreateComponentRequest{OfferingID: offering.OfferingID, Name: "Q", Type: "theory"})
				return err
			},
			field: "maxMarks",
		},
		{
			name: "partial condition",
			run: func() error {
				_, err := svc.CreateComponent(c.ctx, &domain.CreateComponentRequest{OfferingID: offering.OfferingID, Name: "Q", Type: "theory", MaxMarks: 10, ConditionThreshold: ptr(5.0)})
				return err
			},
			field: "conditionFirstId",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			var validation *domain.ValidationError
			require.True(t, errors.As(err, &validation), "got %v", err)
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestRegistry_OfferingSectionMustMatchCourseDepartment(t *testing.T) {
	c := newCampus(t)
	ece := c.newDepartment(c.college, "ECE")
	course := c.newCourse(c.department, "CS303", false)
	eceSection := c.newSection(ece, "A", termStart)

	_, err := NewRegistryService(c.store).CreateOffering(c.ctx, &domain.CreateOfferingRequest{
		CourseID:       course.CourseID,
		SectionID:      eceSection.SectionID,
		AcademicTermID: c.term.AcademicTermID,
		Semester:       5,
	})
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "sectionId", validation.Field)
}

func TestRegistry_OfferingTeacherMustShareCollege(t *testing.T) {
	c := newCampus(t)
	bms := c.newDepartment(c.newCollege("BMSCE"), "CSE")
	outsider, _ := c.newTeacher(bms, "kiran")
	course := c.newCourse(c.department, "CS309", false)
	section := c.newSection(c.department, "A", termStart)

	_, err := NewRegistryService(c.store).CreateOffering(c.ctx, &domain.CreateOfferingRequest{
		CourseID:       course.CourseID,
		SectionID:      section.SectionID,
		AcademicTermID: c.term.AcademicTermID,
		Semester:       5,
		TeacherID:      &outsider.TeacherID,
	})
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "teacherId", validation.Field)
	assert.Empty(t, c.offeringsOf(course))
}

func TestRegistry_DeleteStudent(t *testing.T) {
	c := newCampus(t)
	svc := NewRegistryService(c.store)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS304", false)
	offering := c.newOffering(course, section, nil, termStart)
	student := c.newStudent(section, "1RV23CS400")
	enrollment := c.enroll(student, offering)
	c.setMark(enrollment, c.newComponent(offering, "CIE1", domain.ComponentTheory, 20, 20), 12)

	err := svc.DeleteStudent(c.ctx, student.StudentID, false)
	var dependency *domain.DependencyError
	require.True(t, errors.As(err, &dependency))
	assert.EqualValues(t, 1, dependency.Count)

	require.NoError(t, svc.DeleteStudent(c.ctx, student.StudentID, true))

	gone, err := c.store.Students().GetByID(c.ctx, student.StudentID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	marks, err := c.store.Marks().ListByEnrollment(c.ctx, enrollment.EnrollmentID)
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func TestRegistry_DeleteOfferingCascade(t *testing.T) {
	c := newCampus(t)
	svc := NewRegistryService(c.store)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS305", false)
	offering := c.newOffering(course, section, nil, termStart)
	c.enroll(c.newStudent(section, "1RV23CS401"), offering)
	session, err := NewAttendanceService(c.store).FindOrCreateSession(c.ctx, c.admin, &domain.CreateSessionRequest{
		OfferingID:   offering.OfferingID,
		ClassDate:    domain.NewDate(2026, time.September, 2),
		PeriodNumber: 1,
	})
	require.NoError(t, err)

	err = svc.DeleteOffering(c.ctx, offering.OfferingID, false)
	assert.True(t, errors.Is(err, domain.ErrDependency))

	require.NoError(t, svc.DeleteOffering(c.ctx, offering.OfferingID, true))
	records, err := c.store.Records().ListBySession(c.ctx, session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, c.offeringsOf(course))
}

func TestRegistry_DeleteOfferingCascadeWithConditionalComponent(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	offering := c.newOffering(c.newCourse(c.department, "CS308", false), section, nil, termStart)
	mse1 := c.newComponent(offering, "MSE1", domain.ComponentTheory, 20, 20)
	mse2 := c.newComponent(offering, "MSE2", domain.ComponentTheory, 20, 20)
	mse3 := c.newComponent(offering, "MSE3", domain.ComponentTheory, 20, 20)
	c.conditional(mse3, mse1, mse2, 20)
	enrollment := c.enroll(c.newStudent(section, "1RV23CS403"), offering)
	c.setMark(enrollment, mse1, 9)

	// a condition input cannot go while MSE3 still names it
	err := c.store.Components().Delete(c.ctx, mse1.ComponentID)
	assert.True(t, errors.Is(err, domain.ErrDependency))

	require.NoError(t, NewRegistryService(c.store).DeleteOffering(c.ctx, offering.OfferingID, true))
	components, err := c.store.Components().ListByOffering(c.ctx, offering.OfferingID)
	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestRegistry_DeleteSectionBlockedByStudents(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	c.newStudent(section, "1RV23CS402")

	err := NewRegistryService(c.store).DeleteSection(c.ctx, section.SectionID)
	var dependency *domain.DependencyError
	require.True(t, errors.As(err, &dependency))
	assert.Equal(t, "students", dependency.Dependents)
}
