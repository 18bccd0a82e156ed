package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detail(termID, departmentID uuid.UUID, code, section string, semester int) *OfferingDetail {
	return &OfferingDetail{
		Offering: CourseOffering{OfferingID: uuid.New(), AcademicTermID: termID, Semester: semester},
		Course:   Course{DepartmentID: departmentID, Code: code},
		Section:  Section{Name: section},
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "A", NormalizeName(" a "))
	assert.Equal(t, "CS 301", NormalizeName("cs   301"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestIsDuplicateOffering(t *testing.T) {
	term, dept := uuid.New(), uuid.New()
	a := detail(term, dept, "CS301", "C", 5)
	b := detail(term, dept, "cs301", " c", 5)

	assert.True(t, IsDuplicateOffering(a, b))
	assert.False(t, IsDuplicateOffering(a, a), "an offering never duplicates itself")

	other := detail(term, dept, "CS301", "C", 6)
	assert.False(t, IsDuplicateOffering(a, other))

	elsewhere := detail(term, uuid.New(), "CS301", "C", 5)
	assert.False(t, IsDuplicateOffering(a, elsewhere))
}

func TestCheckPlacement(t *testing.T) {
	college, dept, section := uuid.New(), uuid.New(), uuid.New()
	student := &Student{CollegeID: college, DepartmentID: dept, SectionID: section}

	offering := &OfferingDetail{
		Offering:   CourseOffering{SectionID: section},
		Course:     Course{DepartmentID: dept},
		Department: Department{DepartmentID: dept, CollegeID: college},
	}
	assert.Empty(t, CheckPlacement(student, offering))

	offering.Offering.SectionID = uuid.New()
	assert.Equal(t, []PlacementReason{ReasonSectionMismatch}, CheckPlacement(student, offering))
	assert.Empty(t, CrossesBoundary(CheckPlacement(student, offering)))

	offering.Course.DepartmentID = uuid.New()
	offering.Department.CollegeID = uuid.New()
	reasons := CheckPlacement(student, offering)
	assert.Equal(t, []PlacementReason{ReasonCollegeMismatch, ReasonDepartmentMismatch, ReasonSectionMismatch}, reasons)
	assert.Equal(t, []PlacementReason{ReasonCollegeMismatch, ReasonDepartmentMismatch}, CrossesBoundary(reasons))
}

func TestValidateMark(t *testing.T) {
	component := &TestComponent{Name: "CIE1", MaxMarks: 20}

	assert.NoError(t, ValidateMark(component, 0))
	assert.NoError(t, ValidateMark(component, 20))

	err := ValidateMark(component, 21)
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "marksObtained", validation.Field)
	assert.True(t, errors.Is(ValidateMark(component, -0.5), ErrValidation))
}

func TestEligibilityCondition(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	threshold := 20.0

	plain := &TestComponent{ComponentID: uuid.New()}
	_, ok := plain.Condition()
	assert.False(t, ok)

	partial := &TestComponent{ComponentID: uuid.New(), ConditionFirstID: &first, ConditionThreshold: &threshold}
	_, ok = partial.Condition()
	assert.False(t, ok)

	makeup := &TestComponent{ComponentID: uuid.New(), ConditionFirstID: &first, ConditionSecondID: &second, ConditionThreshold: &threshold}
	condition, ok := makeup.Condition()
	require.True(t, ok)
	assert.True(t, condition.DependsOn(first))
	assert.True(t, condition.DependsOn(second))
	assert.False(t, condition.DependsOn(makeup.ComponentID))

	assert.True(t, condition.Creditable(5, 4))
	assert.True(t, condition.Creditable(12, 7.5))
	assert.False(t, condition.Creditable(12, 8), "the threshold itself is not creditable")
	assert.False(t, condition.Creditable(12, 10))
}

func TestComponentTypes(t *testing.T) {
	kind, err := ParseComponentType("LAB")
	require.NoError(t, err)
	assert.Equal(t, ComponentLab, kind)

	_, err = ParseComponentType("seminar")
	assert.True(t, errors.Is(err, ErrValidation))

	theoryOnly := &Course{HasTheoryComponent: true}
	assert.True(t, theoryOnly.AllowsComponent(ComponentTheory))
	assert.False(t, theoryOnly.AllowsComponent(ComponentLab))
}

func TestRecordStatusCycle(t *testing.T) {
	status := RecordUnmarked
	var seen []RecordStatus
	for i := 0; i < 3; i++ {
		status = NextRecordStatus(status)
		seen = append(seen, status)
	}
	assert.Equal(t, []RecordStatus{RecordPresent, RecordAbsent, RecordUnmarked}, seen)

	parsed, err := ParseRecordStatus("Present")
	require.NoError(t, err)
	assert.Equal(t, RecordPresent, parsed)

	_, err = ParseRecordStatus("late")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCanTransitionSession(t *testing.T) {
	cases := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionUnscheduled, SessionHeld, true},
		{SessionHeld, SessionCanceled, true},
		{SessionHeld, SessionRescheduled, true},
		{SessionHeld, SessionUnscheduled, false},
		{SessionCanceled, SessionHeld, false},
		{SessionRescheduled, SessionCanceled, false},
		{SessionUnscheduled, SessionCanceled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransitionSession(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestRankOfferings(t *testing.T) {
	teacher := uuid.New()
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	withTeacher := &OfferingDetail{Offering: CourseOffering{OfferingID: uuid.New(), TeacherID: &teacher, CreatedAt: base.Add(time.Hour)}}
	busy := &OfferingDetail{Offering: CourseOffering{OfferingID: uuid.New(), CreatedAt: base.Add(2 * time.Hour)}}
	older := &OfferingDetail{Offering: CourseOffering{OfferingID: uuid.New(), CreatedAt: base}}
	newer := &OfferingDetail{Offering: CourseOffering{OfferingID: uuid.New(), CreatedAt: base.Add(time.Minute)}}

	candidates := []OfferingCandidate{
		{Detail: newer},
		{Detail: busy, EnrollmentCount: 30},
		{Detail: older},
		{Detail: withTeacher, EnrollmentCount: 2},
	}
	RankOfferings(candidates)

	var order []uuid.UUID
	for _, c := range candidates {
		order = append(order, c.Detail.Offering.OfferingID)
	}
	assert.Equal(t, []uuid.UUID{
		withTeacher.Offering.OfferingID,
		busy.Offering.OfferingID,
		older.Offering.OfferingID,
		newer.Offering.OfferingID,
	}, order)
}

func TestRankSections(t *testing.T) {
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	crowded := Section{SectionID: uuid.New(), CreatedAt: base.Add(time.Hour)}
	early := Section{SectionID: uuid.New(), CreatedAt: base}
	late := Section{SectionID: uuid.New(), CreatedAt: base.Add(2 * time.Hour)}

	candidates := []SectionCandidate{
		{Section: late, StudentCount: 60},
		{Section: crowded, OfferingCount: 1},
		{Section: early, StudentCount: 60},
	}
	assert.EqualValues(t, 100, candidates[1].Score())
	RankSections(candidates)

	assert.Equal(t, crowded.SectionID, candidates[0].Section.SectionID)
	assert.Equal(t, early.SectionID, candidates[1].Section.SectionID)
	assert.Equal(t, late.SectionID, candidates[2].Section.SectionID)
}

func TestDateJSON(t *testing.T) {
	var req CreateSessionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"classDate":"2026-09-14","periodNumber":2}`), &req))
	assert.Equal(t, NewDate(2026, time.September, 14), req.ClassDate)

	out, err := json.Marshal(req.ClassDate)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-09-14"`, string(out))

	err = json.Unmarshal([]byte(`{"classDate":"14/09/2026"}`), &req)
	var typeErr *json.UnmarshalTypeError
	require.True(t, errors.As(err, &typeErr))
	validation := NewTypeError(typeErr)
	assert.True(t, errors.Is(validation, ErrValidation))
	assert.Equal(t, "classDate", validation.Field)

	var term CreateTermRequest
	err = json.Unmarshal([]byte(`{"code":"2026-ODD","startDate":"2026-08-01","endDate":"31-12-2026"}`), &term)
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "endDate", NewTypeError(typeErr).Field)
}

func TestEntityJSONKeys(t *testing.T) {
	teacherID := uuid.New()
	out, err := json.Marshal(CourseOffering{OfferingID: uuid.New(), TeacherID: &teacherID, Semester: 5})
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(out, &keys))
	for _, key := range []string{"offeringId", "courseId", "sectionId", "academicTermId", "teacherId", "createdAt"} {
		assert.Contains(t, keys, key)
	}
	assert.NotContains(t, keys, "offering_id")
}
