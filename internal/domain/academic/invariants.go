package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeName folds a section name or course code for natural-key comparison.
func NormalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OfferingDetail is an offering resolved together with the rows its
// natural key and placement depend on.
type OfferingDetail struct {
	Offering   CourseOffering
	Course     Course
	Department Department
	Section    Section
}

// NaturalKey identifies an offering independently of its generated id.
type NaturalKey struct {
	TermID       uuid.UUID
	DepartmentID uuid.UUID
	CourseCode   string
	SectionName  string
	Semester     int
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s/%s/%s/sem%d", k.TermID, k.CourseCode, k.SectionName, k.Semester)
}

// OfferingNaturalKey returns the grouping key used by reconciliation.
func OfferingNaturalKey(d *OfferingDetail) NaturalKey {
	return NaturalKey{
		TermID:       d.Offering.AcademicTermID,
		DepartmentID: d.Course.DepartmentID,
		CourseCode:   NormalizeName(d.Course.Code),
		SectionName:  NormalizeName(d.Section.Name),
		Semester:     d.Offering.Semester,
	}
}

// IsDuplicateOffering reports whether two distinct offerings share a natural key.
func IsDuplicateOffering(a, b *OfferingDetail) bool {
	if a.Offering.OfferingID == b.Offering.OfferingID {
		return false
	}
	return OfferingNaturalKey(a) == OfferingNaturalKey(b)
}

// SameOfferingSlot reports whether two offerings collide on the stored
// uniqueness key (courseId, sectionId, semester, academicTermId).
func SameOfferingSlot(a, b *CourseOffering) bool {
	return a.CourseID == b.CourseID &&
		a.SectionID == b.SectionID &&
		a.Semester == b.Semester &&
		a.AcademicTermID == b.AcademicTermID
}

// BelongsToCollege reports whether the offering's course is run by the student's college.
func BelongsToCollege(student *Student, offering *OfferingDetail) bool {
	return offering.Department.CollegeID == student.CollegeID
}

// PlacementReason is one way an enrollment can be misplaced
type PlacementReason string

const (
	ReasonCollegeMismatch    PlacementReason = "college_mismatch"
	ReasonDepartmentMismatch PlacementReason = "department_mismatch"
	ReasonSectionMismatch    PlacementReason = "section_mismatch"
)

// CheckPlacement lists every placement rule the student would break in the offering.
func CheckPlacement(student *Student, offering *OfferingDetail) []PlacementReason {
	var reasons []PlacementReason
	if !BelongsToCollege(student, offering) {
		reasons = append(reasons, ReasonCollegeMismatch)
	}
	if offering.Course.DepartmentID != student.DepartmentID {
		reasons = append(reasons, ReasonDepartmentMismatch)
	}
	if offering.Offering.SectionID != student.SectionID {
		reasons = append(reasons, ReasonSectionMismatch)
	}
	return reasons
}

// CrossesBoundary keeps only the reasons that can never be auto-resolved.
func CrossesBoundary(reasons []PlacementReason) []PlacementReason {
	var out []PlacementReason
	for _, r := range reasons {
		if r == ReasonCollegeMismatch || r == ReasonDepartmentMismatch {
			out = append(out, r)
		}
	}
	return out
}

// ValidateMark checks 0 <= value <= component.MaxMarks.
func ValidateMark(component *TestComponent, value float64) error {
	if value < 0 || value > component.MaxMarks {
		return NewValidationError("marksObtained",
			"component %q accepts marks between 0 and %g, got %g", component.Name, component.MaxMarks, value)
	}
	return nil
}

// EligibilityCondition is the closed form of a conditional component:
// Component is creditable only while mark(First)+mark(Second) < Threshold.
type EligibilityCondition struct {
	ComponentID uuid.UUID
	FirstID     uuid.UUID
	SecondID    uuid.UUID
	Threshold   float64
}

// Condition returns the component's eligibility condition, if it has one.
func (c *TestComponent) Condition() (EligibilityCondition, bool) {
	if c.ConditionFirstID == nil || c.ConditionSecondID == nil || c.ConditionThreshold == nil {
		return EligibilityCondition{}, false
	}
	return EligibilityCondition{
		ComponentID: c.ComponentID,
		FirstID:     *c.ConditionFirstID,
		SecondID:    *c.ConditionSecondID,
		Threshold:   *c.ConditionThreshold,
	}, true
}

// DependsOn reports whether componentID is one of the condition inputs.
func (e EligibilityCondition) DependsOn(componentID uuid.UUID) bool {
	return e.FirstID == componentID || e.SecondID == componentID
}

// Creditable applies the rule to the two input marks.
func (e EligibilityCondition) Creditable(first, second float64) bool {
	return first+second < e.Threshold
}

// ParseComponentType validates a component type string.
func ParseComponentType(s string) (ComponentType, error) {
	switch ComponentType(strings.ToLower(s)) {
	case ComponentTheory:
		return ComponentTheory, nil
	case ComponentLab:
		return ComponentLab, nil
	}
	return "", NewValidationError("type", "must be one of theory, lab")
}

// AllowsComponent reports whether the course carries components of type t.
func (c *Course) AllowsComponent(t ComponentType) bool {
	switch t {
	case ComponentTheory:
		return c.HasTheoryComponent
	case ComponentLab:
		return c.HasLabComponent
	}
	return false
}

// ParseRecordStatus validates a record status string, including unmarked.
func ParseRecordStatus(s string) (RecordStatus, error) {
	switch RecordStatus(strings.ToLower(s)) {
	case RecordPresent:
		return RecordPresent, nil
	case RecordAbsent:
		return RecordAbsent, nil
	case RecordUnmarked:
		return RecordUnmarked, nil
	}
	return "", NewValidationError("status", "must be one of present, absent, unmarked")
}

// NextRecordStatus is the toggle cycle unmarked -> present -> absent -> unmarked.
func NextRecordStatus(current RecordStatus) RecordStatus {
	switch current {
	case RecordPresent:
		return RecordAbsent
	case RecordAbsent:
		return RecordUnmarked
	default:
		return RecordPresent
	}
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionUnscheduled: {SessionHeld},
	SessionHeld:        {SessionCanceled, SessionRescheduled},
}

// CanTransitionSession reports whether a session may move from one status to another.
func CanTransitionSession(from, to SessionStatus) bool {
	for _, s := range sessionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OfferingCandidate is an offering with the counts used for survivor ranking.
type OfferingCandidate struct {
	Detail          *OfferingDetail
	EnrollmentCount int64
}

// RankOfferings orders candidates best-first: teacher assigned, then more
// enrollments, then earliest created, then lowest id.
func RankOfferings(candidates []OfferingCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		at, bt := a.Detail.Offering.HasTeacher(), b.Detail.Offering.HasTeacher()
		if at != bt {
			return at
		}
		if a.EnrollmentCount != b.EnrollmentCount {
			return a.EnrollmentCount > b.EnrollmentCount
		}
		ac, bc := a.Detail.Offering.CreatedAt, b.Detail.Offering.CreatedAt
		if !ac.Equal(bc) {
			return ac.Before(bc)
		}
		return a.Detail.Offering.OfferingID.String() < b.Detail.Offering.OfferingID.String()
	})
}

// SectionCandidate is a section with the counts used for survivor ranking.
type SectionCandidate struct {
	Section       Section
	OfferingCount int64
	StudentCount  int64
}

// Score is offeringCount*100 + studentCount.
func (c SectionCandidate) Score() int64 {
	return c.OfferingCount*100 + c.StudentCount
}

// RankSections orders candidates best-first by score, then earliest created, then lowest id.
func RankSections(candidates []SectionCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if !a.Section.CreatedAt.Equal(b.Section.CreatedAt) {
			return a.Section.CreatedAt.Before(b.Section.CreatedAt)
		}
		return a.Section.SectionID.String() < b.Section.SectionID.String()
	})
}
