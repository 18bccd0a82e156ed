package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Date is a calendar date carried as "2006-01-02" on the wire.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			// encoding/json fills in the offending field
			return &json.UnmarshalTypeError{Value: "string " + s, Type: reflect.TypeOf(Date{})}
		}
	}
	d.Time = DateOnly(t)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// NewTypeError names the request field of a JSON type mismatch
func NewTypeError(err *json.UnmarshalTypeError) *ValidationError {
	if err.Type == reflect.TypeOf(Date{}) {
		return NewValidationError(err.Field, "must be a date in the format %s", dateLayout)
	}
	return NewValidationError(err.Field, "must be of type %s", err.Type)
}

// Registry requests

type CreateCollegeRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=200"`
}

type CreateDepartmentRequest struct {
	CollegeID uuid.UUID `json:"collegeId" validate:"required"`
	Code      string    `json:"code" validate:"required,max=32"`
	Name      string    `json:"name" validate:"required,max=200"`
}

type CreateSectionRequest struct {
	DepartmentID uuid.UUID `json:"departmentId" validate:"required"`
	Name         string    `json:"name" validate:"required,max=32"`
}

type CreateCourseRequest struct {
	DepartmentID       uuid.UUID `json:"departmentId" validate:"required"`
	Code               string    `json:"code" validate:"required,max=32"`
	Name               string    `json:"name" validate:"required,max=200"`
	Credits            int       `json:"credits" validate:"gte=0,lte=40"`
	HasTheoryComponent *bool     `json:"hasTheoryComponent"`
	HasLabComponent    bool      `json:"hasLabComponent"`
}

type CreateTermRequest struct {
	Code      string `json:"code" validate:"required,max=32"`
	Name      string `json:"name" validate:"required,max=200"`
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
}

type CreateTeacherRequest struct {
	UserID       uuid.UUID `json:"userId" validate:"required"`
	DepartmentID uuid.UUID `json:"departmentId" validate:"required"`
	Name         string    `json:"name" validate:"required,max=200"`
}

// CreateStudentRequest places a student by section; department and college
// are derived from it.
type CreateStudentRequest struct {
	UserID    uuid.UUID `json:"userId" validate:"required"`
	SectionID uuid.UUID `json:"sectionId" validate:"required"`
	USN       string    `json:"usn" validate:"required,alphanum,max=20"`
	Name      string    `json:"name" validate:"required,max=200"`
	Semester  int       `json:"semester" validate:"required,gte=1,lte=12"`
}

type CreateOfferingRequest struct {
	CourseID       uuid.UUID  `json:"courseId" validate:"required"`
	SectionID      uuid.UUID  `json:"sectionId" validate:"required"`
	AcademicTermID uuid.UUID  `json:"academicTermId" validate:"required"`
	Semester       int        `json:"semester" validate:"required,gte=1,lte=12"`
	TeacherID      *uuid.UUID `json:"teacherId"`
}

type CreateComponentRequest struct {
	OfferingID         uuid.UUID  `json:"offeringId" validate:"required"`
	Name               string     `json:"name" validate:"required,max=100"`
	Type               string     `json:"type" validate:"required,oneof=theory lab"`
	MaxMarks           float64    `json:"maxMarks" validate:"gt=0"`
	Weightage          float64    `json:"weightage" validate:"gte=0"`
	ConditionFirstID   *uuid.UUID `json:"conditionFirstId" validate:"required_with=ConditionSecondID ConditionThreshold"`
	ConditionSecondID  *uuid.UUID `json:"conditionSecondId" validate:"required_with=ConditionFirstID ConditionThreshold"`
	ConditionThreshold *float64   `json:"conditionThreshold" validate:"omitempty,gt=0"`
}

type AssignTeacherRequest struct {
	TeacherID *uuid.UUID `json:"teacherId"`
}

// Reconciliation and placement

type ReconcileOfferingsRequest struct {
	CourseID *uuid.UUID `json:"courseId"`
	TermID   *uuid.UUID `json:"termId"`
}

type ReconcileSectionsRequest struct {
	DepartmentID uuid.UUID `json:"departmentId" validate:"required"`
}

// Decision is one logged reconciliation outcome
type Decision struct {
	Action     ReconciliationAction `json:"action"`
	SurvivorID uuid.UUID            `json:"survivorId"`
	DonorID    uuid.UUID            `json:"donorId"`
	Reason     string               `json:"reason"`
}

type ReconcileResult struct {
	RunID           uuid.UUID         `json:"runId"`
	Merged          int               `json:"merged"`
	Deleted         int               `json:"deleted"`
	Decisions       []Decision        `json:"decisions"`
	PlacementErrors []*PlacementError `json:"placementErrors,omitempty"`
	// Sections holds the section passes run ahead of an offering pass.
	Sections []*ReconcileResult `json:"sections,omitempty"`
}

type EnsureEnrollmentRequest struct {
	StudentID uuid.UUID  `json:"studentId" validate:"required"`
	CourseID  uuid.UUID  `json:"courseId" validate:"required"`
	TermID    *uuid.UUID `json:"termId"`
}

// EnrollmentAction describes what EnsureEnrollment did
type EnrollmentAction string

const (
	EnrollmentExisting EnrollmentAction = "existing"
	EnrollmentCreated  EnrollmentAction = "created"
	EnrollmentMigrated EnrollmentAction = "migrated"
)

type EnsureEnrollmentResult struct {
	Enrollment Enrollment       `json:"enrollment"`
	Action     EnrollmentAction `json:"action"`
}

type AuditPlacementRequest struct {
	Semester  int        `json:"semester" validate:"required,gte=1,lte=12"`
	CollegeID *uuid.UUID `json:"collegeId"`
	Fix       bool       `json:"fix"`
}

// PlacementViolation is one misplaced enrollment found by the audit
type PlacementViolation struct {
	EnrollmentID    uuid.UUID         `json:"enrollmentId"`
	StudentID       uuid.UUID         `json:"studentId"`
	USN             string            `json:"usn"`
	OfferingID      uuid.UUID         `json:"offeringId"`
	CourseCode      string            `json:"courseCode"`
	Reasons         []PlacementReason `json:"reasons"`
	Fixed           bool              `json:"fixed"`
	FixedOfferingID *uuid.UUID        `json:"fixedOfferingId,omitempty"`
	Note            string            `json:"note,omitempty"`
}

type AuditReport struct {
	RunID      uuid.UUID            `json:"runId"`
	Semester   int                  `json:"semester"`
	Checked    int                  `json:"checked"`
	Fixed      int                  `json:"fixed"`
	Violations []PlacementViolation `json:"violations"`
}

// PlacementFilter scopes the audit read
type PlacementFilter struct {
	Semester  int
	CollegeID *uuid.UUID
}

// PlacementRow is one (student, enrollment, offering, course) join row
type PlacementRow struct {
	EnrollmentID        uuid.UUID `db:"enrollment_id"`
	StudentID           uuid.UUID `db:"student_id"`
	USN                 string    `db:"usn"`
	StudentCollegeID    uuid.UUID `db:"student_college_id"`
	StudentDepartmentID uuid.UUID `db:"student_department_id"`
	StudentSectionID    uuid.UUID `db:"student_section_id"`
	OfferingID          uuid.UUID `db:"offering_id"`
	OfferingSectionID   uuid.UUID `db:"offering_section_id"`
	AcademicTermID      uuid.UUID `db:"academic_term_id"`
	CourseID            uuid.UUID `db:"course_id"`
	CourseCode          string    `db:"course_code"`
	CourseDepartmentID  uuid.UUID `db:"course_department_id"`
	CourseCollegeID     uuid.UUID `db:"course_college_id"`
}

// Reasons applies the placement rules to a join row.
func (r PlacementRow) Reasons() []PlacementReason {
	student := Student{CollegeID: r.StudentCollegeID, DepartmentID: r.StudentDepartmentID, SectionID: r.StudentSectionID}
	detail := OfferingDetail{
		Offering:   CourseOffering{OfferingID: r.OfferingID, SectionID: r.OfferingSectionID},
		Course:     Course{CourseID: r.CourseID, DepartmentID: r.CourseDepartmentID},
		Department: Department{DepartmentID: r.CourseDepartmentID, CollegeID: r.CourseCollegeID},
	}
	return CheckPlacement(&student, &detail)
}

// Attendance

type CreateSessionRequest struct {
	OfferingID      uuid.UUID `json:"offeringId" validate:"required"`
	ClassDate       Date      `json:"classDate"`
	PeriodNumber    int       `json:"periodNumber" validate:"required,gte=1,lte=12"`
	SyllabusCovered *string   `json:"syllabusCovered" validate:"omitempty,max=2000"`
}

type SessionResult struct {
	SessionID     uuid.UUID `json:"sessionId"`
	StudentsCount int       `json:"studentsCount"`
	Created       bool      `json:"created"`
}

type SessionView struct {
	Session AttendanceSession  `json:"session"`
	Records []AttendanceRecord `json:"records"`
}

type SetRecordStatusRequest struct {
	SessionID uuid.UUID `json:"sessionId" validate:"required"`
	StudentID uuid.UUID `json:"studentId" validate:"required"`
	Status    string    `json:"status" validate:"required,oneof=present absent unmarked"`
}

type ToggleRecordRequest struct {
	SessionID uuid.UUID `json:"sessionId" validate:"required"`
	StudentID uuid.UUID `json:"studentId" validate:"required"`
}

type UpdateSessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=held canceled rescheduled"`
}

type RecordResult struct {
	Status RecordStatus `json:"status"`
}

// Marks

type SetMarkRequest struct {
	EnrollmentID  uuid.UUID `json:"-"`
	ComponentID   uuid.UUID `json:"componentId" validate:"required"`
	MarksObtained *float64  `json:"marksObtained"`
}

type MarkResult struct {
	Accepted bool        `json:"accepted"`
	Nulled   []uuid.UUID `json:"nulled,omitempty"`
}

type MarksSummary struct {
	EnrollmentID  uuid.UUID `json:"enrollmentId"`
	TheoryTotal   float64   `json:"theoryTotal"`
	LabTotal      float64   `json:"labTotal"`
	WeightedTotal float64   `json:"weightedTotal"`
}
