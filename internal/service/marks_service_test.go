package service

import (
	"errors"
	"testing"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gradebook struct {
	*campus
	owner      *user.Principal
	enrollment *domain.Enrollment
	a, b, c    *domain.TestComponent
	lab        *domain.TestComponent
	svc        *MarksService
}

// newGradebook builds an offering with CIE1, CIE2, a makeup test CIE3 that
// only counts while CIE1+CIE2 < 20, and one lab component.
func newGradebook(t *testing.T) *gradebook {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS701", true)
	teacher, owner := c.newTeacher(c.department, "deepa")
	offering := c.newOffering(course, section, teacher, termStart)

	g := &gradebook{
		campus:     c,
		owner:      owner,
		enrollment: c.enroll(c.newStudent(section, "1RV23CS300"), offering),
		a:          c.newComponent(offering, "CIE1", domain.ComponentTheory, 20, 20),
		b:          c.newComponent(offering, "CIE2", domain.ComponentTheory, 20, 20),
		c:          c.newComponent(offering, "CIE3", domain.ComponentTheory, 20, 20),
		lab:        c.newComponent(offering, "LAB", domain.ComponentLab, 50, 10),
		svc:        NewMarksService(c.store),
	}
	c.conditional(g.c, g.a, g.b, 20)
	return g
}

func (g *gradebook) write(component *domain.TestComponent, value *float64) (*domain.MarkResult, error) {
	return g.svc.SetMark(g.ctx, g.owner, &domain.SetMarkRequest{
		EnrollmentID:  g.enrollment.EnrollmentID,
		ComponentID:   component.ComponentID,
		MarksObtained: value,
	})
}

func TestSetMark_ConditionalComponentNulled(t *testing.T) {
	g := newGradebook(t)

	_, err := g.write(g.a, ptr(5.0))
	require.NoError(t, err)
	_, err = g.write(g.b, ptr(4.0))
	require.NoError(t, err)
	_, err = g.write(g.c, ptr(15.0))
	require.NoError(t, err)

	_, err = g.write(g.a, ptr(12.0))
	require.NoError(t, err)
	result, err := g.write(g.b, ptr(10.0))
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, []uuid.UUID{g.c.ComponentID}, result.Nulled)

	mark := g.markOf(g.enrollment.EnrollmentID, g.c.ComponentID)
	require.NotNil(t, mark)
	assert.Nil(t, mark.MarksObtained)

	// once the condition fails the conditional component rejects new values
	_, err = g.write(g.c, ptr(10.0))
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "marksObtained", validation.Field)
}

func TestSetMark_OverMaxLeavesPriorValue(t *testing.T) {
	g := newGradebook(t)

	_, err := g.write(g.a, ptr(17.0))
	require.NoError(t, err)

	_, err = g.write(g.a, ptr(g.a.MaxMarks+1))
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Contains(t, validation.Message, "CIE1")
	assert.Contains(t, validation.Message, "20")

	assert.Equal(t, 17.0, *g.markOf(g.enrollment.EnrollmentID, g.a.ComponentID).MarksObtained)

	_, err = g.write(g.a, ptr(-1.0))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSetMark_ComponentOfAnotherOffering(t *testing.T) {
	g := newGradebook(t)
	section := g.newSection(g.department, "B", termStart)
	course := g.newCourse(g.department, "CS702", false)
	foreign := g.newComponent(g.newOffering(course, section, nil, termStart), "CIE1", domain.ComponentTheory, 20, 20)

	_, err := g.write(foreign, ptr(5.0))
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "componentId", validation.Field)
}

func TestSetMark_AccessDenied(t *testing.T) {
	g := newGradebook(t)
	_, stranger := g.newTeacher(g.department, "naveen")

	_, err := g.svc.SetMark(g.ctx, stranger, &domain.SetMarkRequest{
		EnrollmentID:  g.enrollment.EnrollmentID,
		ComponentID:   g.a.ComponentID,
		MarksObtained: ptr(5.0),
	})
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
	assert.Nil(t, g.markOf(g.enrollment.EnrollmentID, g.a.ComponentID))
}

func TestTotalsAndSummary(t *testing.T) {
	g := newGradebook(t)

	_, err := g.write(g.a, ptr(10.0))
	require.NoError(t, err)
	_, err = g.write(g.b, ptr(5.0))
	require.NoError(t, err)
	_, err = g.write(g.lab, ptr(25.0))
	require.NoError(t, err)

	theory, err := g.svc.Total(g.ctx, g.enrollment.EnrollmentID, domain.ComponentTheory)
	require.NoError(t, err)
	assert.Equal(t, 15.0, theory)

	upper, err := g.svc.Total(g.ctx, g.enrollment.EnrollmentID, domain.ComponentType("THEORY"))
	require.NoError(t, err)
	assert.Equal(t, theory, upper)

	lab, err := g.svc.Total(g.ctx, g.enrollment.EnrollmentID, domain.ComponentLab)
	require.NoError(t, err)
	assert.Equal(t, 25.0, lab)

	summary, err := g.svc.Summary(g.ctx, g.admin, g.enrollment.EnrollmentID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, summary.TheoryTotal)
	assert.Equal(t, 25.0, summary.LabTotal)
	// 10/20*20 + 5/20*20 + 25/50*10
	assert.InDelta(t, 20.0, summary.WeightedTotal, 1e-9)
}

func TestTotal_RejectsMissingComponentType(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS703", false)
	enrollment := c.enroll(c.newStudent(section, "1RV23CS301"), c.newOffering(course, section, nil, termStart))

	_, err := NewMarksService(c.store).Total(c.ctx, enrollment.EnrollmentID, domain.ComponentLab)
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "type", validation.Field)
}
