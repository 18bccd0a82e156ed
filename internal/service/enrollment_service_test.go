package service

import (
	"errors"
	"testing"
	"time"

	domain "college-records/internal/domain/academic"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnrollmentService(c *campus) *EnrollmentService {
	svc := NewEnrollmentService(c.store)
	svc.now = func() time.Time { return today }
	return svc
}

func TestEnsureEnrollment_CreatesThenReturnsExisting(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS501", false)
	offering := c.newOffering(course, section, nil, termStart)
	student := c.newStudent(section, "1RV23CS100")

	svc := newEnrollmentService(c)
	req := &domain.EnsureEnrollmentRequest{StudentID: student.StudentID, CourseID: course.CourseID}

	created, err := svc.EnsureEnrollment(c.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentCreated, created.Action)
	assert.Equal(t, offering.OfferingID, created.Enrollment.OfferingID)
	assert.Equal(t, 1, created.Enrollment.AttemptNumber)

	existing, err := svc.EnsureEnrollment(c.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentExisting, existing.Action)
	assert.Equal(t, created.Enrollment.EnrollmentID, existing.Enrollment.EnrollmentID)
}

func TestEnsureEnrollment_AttemptNumberCountsEarlierTerms(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS502", false)
	student := c.newStudent(section, "1RV23CS101")

	earlier := &domain.AcademicTerm{
		AcademicTermID: uuid.New(),
		Code:           "2026-EVEN",
		Name:           "Even 2026",
		StartDate:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.store.Terms().Create(c.ctx, earlier))
	failed := &domain.CourseOffering{OfferingID: uuid.New(), CourseID: course.CourseID, SectionID: section.SectionID, AcademicTermID: earlier.AcademicTermID, Semester: 5}
	require.NoError(t, c.store.Offerings().Create(c.ctx, failed))
	c.enroll(student, failed)

	c.newOffering(course, section, nil, termStart)

	result, err := newEnrollmentService(c).EnsureEnrollment(c.ctx, &domain.EnsureEnrollmentRequest{
		StudentID: student.StudentID,
		CourseID:  course.CourseID,
		TermID:    &c.term.AcademicTermID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentCreated, result.Action)
	assert.Equal(t, 2, result.Enrollment.AttemptNumber)
}

func TestEnsureEnrollment_MigratesFromOtherSection(t *testing.T) {
	c := newCampus(t)
	own := c.newSection(c.department, "A", termStart)
	wrong := c.newSection(c.department, "C", termStart)
	course := c.newCourse(c.department, "CS503", false)
	target := c.newOffering(course, own, nil, termStart)
	misplacedOffering := c.newOffering(course, wrong, nil, termStart)

	student := c.newStudent(own, "1RV23CS102")
	enrollment := c.enroll(student, misplacedOffering)

	wrongCIE := c.newComponent(misplacedOffering, "CIE1", domain.ComponentTheory, 50, 0.5)
	wrongQuiz := c.newComponent(misplacedOffering, "Quiz", domain.ComponentTheory, 10, 0.1)
	targetCIE := c.newComponent(target, "CIE1", domain.ComponentTheory, 50, 0.5)
	c.setMark(enrollment, wrongCIE, 35)
	c.setMark(enrollment, wrongQuiz, 8)

	result, err := newEnrollmentService(c).EnsureEnrollment(c.ctx, &domain.EnsureEnrollmentRequest{StudentID: student.StudentID, CourseID: course.CourseID})
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentMigrated, result.Action)
	assert.Equal(t, enrollment.EnrollmentID, result.Enrollment.EnrollmentID)
	assert.Equal(t, target.OfferingID, result.Enrollment.OfferingID)

	assert.Equal(t, 35.0, *c.markOf(enrollment.EnrollmentID, targetCIE.ComponentID).MarksObtained)
	assert.Nil(t, c.markOf(enrollment.EnrollmentID, wrongQuiz.ComponentID))
}

func TestEnsureEnrollment_Failures(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS504", false)
	student := c.newStudent(section, "1RV23CS103")
	svc := newEnrollmentService(c)

	t.Run("no offering for the section", func(t *testing.T) {
		_, err := svc.EnsureEnrollment(c.ctx, &domain.EnsureEnrollmentRequest{StudentID: student.StudentID, CourseID: course.CourseID})
		var noMatch *domain.NoMatchingOfferingError
		require.True(t, errors.As(err, &noMatch))
		assert.Equal(t, student.StudentID, noMatch.StudentID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("duplicate offerings", func(t *testing.T) {
		c.newOffering(course, section, nil, termStart)
		c.newOffering(course, section, nil, termStart.Add(time.Hour))
		_, err := svc.EnsureEnrollment(c.ctx, &domain.EnsureEnrollmentRequest{StudentID: student.StudentID, CourseID: course.CourseID})
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("course of another department", func(t *testing.T) {
		ece := c.newDepartment(c.college, "ECE")
		foreign := c.newCourse(ece, "EC501", false)
		_, err := svc.EnsureEnrollment(c.ctx, &domain.EnsureEnrollmentRequest{StudentID: student.StudentID, CourseID: foreign.CourseID})
		var placement *domain.PlacementError
		require.True(t, errors.As(err, &placement))
		assert.Equal(t, []domain.PlacementReason{domain.ReasonDepartmentMismatch}, placement.Reasons)
	})

	t.Run("no current term", func(t *testing.T) {
		svc := NewEnrollmentService(c.store)
		svc.now = func() time.Time { return termEnd.AddDate(1, 0, 0) }
		_, err := svc.EnsureEnrollment(c.ctx, &domain.EnsureEnrollmentRequest{StudentID: student.StudentID, CourseID: course.CourseID})
		var notFound *domain.NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "academic_term", notFound.Entity)
	})
}

func TestAuditPlacement_SectionMismatch(t *testing.T) {
	c := newCampus(t)
	sectionA := c.newSection(c.department, "A", termStart)
	sectionC := c.newSection(c.department, "C", termStart)
	course := c.newCourse(c.department, "CS505", false)
	offeringA := c.newOffering(course, sectionA, nil, termStart)
	offeringC := c.newOffering(course, sectionC, nil, termStart)

	student := c.newStudent(sectionA, "1RV23CS104")
	enrollment := c.enroll(student, offeringC)
	c.enroll(c.newStudent(sectionC, "1RV23CS105"), offeringC)

	svc := newEnrollmentService(c)

	report, err := svc.AuditPlacement(c.ctx, &domain.AuditPlacementRequest{Semester: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, enrollment.EnrollmentID, v.EnrollmentID)
	assert.Equal(t, []domain.PlacementReason{domain.ReasonSectionMismatch}, v.Reasons)
	assert.False(t, v.Fixed)

	unchanged, err := c.store.Enrollments().GetByID(c.ctx, enrollment.EnrollmentID)
	require.NoError(t, err)
	assert.Equal(t, offeringC.OfferingID, unchanged.OfferingID)

	fixed, err := svc.AuditPlacement(c.ctx, &domain.AuditPlacementRequest{Semester: 5, Fix: true})
	require.NoError(t, err)
	assert.Equal(t, 1, fixed.Fixed)
	require.Len(t, fixed.Violations, 1)
	require.NotNil(t, fixed.Violations[0].FixedOfferingID)
	assert.Equal(t, offeringA.OfferingID, *fixed.Violations[0].FixedOfferingID)

	moved, err := c.store.Enrollments().GetByID(c.ctx, enrollment.EnrollmentID)
	require.NoError(t, err)
	assert.Equal(t, offeringA.OfferingID, moved.OfferingID)

	clean, err := svc.AuditPlacement(c.ctx, &domain.AuditPlacementRequest{Semester: 5})
	require.NoError(t, err)
	assert.Empty(t, clean.Violations)
}

func TestAuditPlacement_LeavesFlaggedWithoutTarget(t *testing.T) {
	c := newCampus(t)
	sectionA := c.newSection(c.department, "A", termStart)
	sectionC := c.newSection(c.department, "C", termStart)
	course := c.newCourse(c.department, "CS506", false)
	offeringC := c.newOffering(course, sectionC, nil, termStart)

	enrollment := c.enroll(c.newStudent(sectionA, "1RV23CS106"), offeringC)

	report, err := newEnrollmentService(c).AuditPlacement(c.ctx, &domain.AuditPlacementRequest{Semester: 5, Fix: true})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.False(t, report.Violations[0].Fixed)
	assert.NotEmpty(t, report.Violations[0].Note)
	assert.Zero(t, report.Fixed)

	still, err := c.store.Enrollments().GetByID(c.ctx, enrollment.EnrollmentID)
	require.NoError(t, err)
	assert.Equal(t, offeringC.OfferingID, still.OfferingID)
}

func TestAuditPlacement_NeverFixesDepartmentMismatch(t *testing.T) {
	c := newCampus(t)
	ece := c.newDepartment(c.college, "ECE")
	cseSection := c.newSection(c.department, "A", termStart)
	eceSection := c.newSection(ece, "A", termStart)
	course := c.newCourse(ece, "EC601", false)
	offering := c.newOffering(course, eceSection, nil, termStart)

	c.enroll(c.newStudent(cseSection, "1RV23CS107"), offering)

	report, err := newEnrollmentService(c).AuditPlacement(c.ctx, &domain.AuditPlacementRequest{Semester: 5, Fix: true})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0].Reasons, domain.ReasonDepartmentMismatch)
	assert.False(t, report.Violations[0].Fixed)
}
