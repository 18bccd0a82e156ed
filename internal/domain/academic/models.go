package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// College is the top of the organizational hierarchy
type College struct {
	CollegeID uuid.UUID `json:"collegeId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Code      string    `json:"code" gorm:"unique;not null"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Department belongs to exactly one college
type Department struct {
	DepartmentID uuid.UUID `json:"departmentId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CollegeID    uuid.UUID `json:"collegeId" gorm:"type:uuid;not null"`
	Code         string    `json:"code" gorm:"not null"`
	Name         string    `json:"name" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Section is a fixed student cohort within a department
type Section struct {
	SectionID    uuid.UUID `json:"sectionId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	DepartmentID uuid.UUID `json:"departmentId" gorm:"type:uuid;not null"`
	Name         string    `json:"name" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Course represents a course taught by a department
type Course struct {
	CourseID           uuid.UUID `json:"courseId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	DepartmentID       uuid.UUID `json:"departmentId" gorm:"type:uuid;not null"`
	Code               string    `json:"code" gorm:"not null"`
	Name               string    `json:"name" gorm:"not null"`
	Credits            int       `json:"credits" gorm:"not null;default:0"`
	HasTheoryComponent bool      `json:"hasTheoryComponent" gorm:"not null;default:true"`
	HasLabComponent    bool      `json:"hasLabComponent" gorm:"not null;default:false"`
	CreatedAt          time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// AcademicTerm represents an academic term
type AcademicTerm struct {
	AcademicTermID uuid.UUID `json:"academicTermId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Code           string    `json:"code" gorm:"unique;not null"`
	Name           string    `json:"name" gorm:"not null"`
	StartDate      time.Time `json:"startDate" gorm:"type:date;not null"`
	EndDate        time.Time `json:"endDate" gorm:"type:date;not null"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Teacher is bound to a user account of the identity layer
type Teacher struct {
	TeacherID    uuid.UUID `json:"teacherId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID       uuid.UUID `json:"userId" gorm:"type:uuid;unique;not null"`
	CollegeID    uuid.UUID `json:"collegeId" gorm:"type:uuid;not null"`
	DepartmentID uuid.UUID `json:"departmentId" gorm:"type:uuid;not null"`
	Name         string    `json:"name" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// CourseOffering is one (course, section, term) teaching instance
type CourseOffering struct {
	OfferingID     uuid.UUID  `json:"offeringId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CourseID       uuid.UUID  `json:"courseId" gorm:"type:uuid;not null"`
	SectionID      uuid.UUID  `json:"sectionId" gorm:"type:uuid;not null"`
	AcademicTermID uuid.UUID  `json:"academicTermId" gorm:"type:uuid;not null"`
	Semester       int        `json:"semester" gorm:"not null"`
	TeacherID      *uuid.UUID `json:"teacherId,omitempty" gorm:"type:uuid"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// HasTeacher reports whether a teacher is assigned
func (o *CourseOffering) HasTeacher() bool {
	return o.TeacherID != nil && *o.TeacherID != uuid.Nil
}

// Student represents a student placed in a college, department and section
type Student struct {
	StudentID    uuid.UUID `json:"studentId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID       uuid.UUID `json:"userId" gorm:"type:uuid;not null"`
	CollegeID    uuid.UUID `json:"collegeId" gorm:"type:uuid;not null"`
	DepartmentID uuid.UUID `json:"departmentId" gorm:"type:uuid;not null"`
	SectionID    uuid.UUID `json:"sectionId" gorm:"type:uuid;not null"`
	USN          string    `json:"usn" gorm:"column:usn;unique;not null"`
	Name         string    `json:"name" gorm:"not null"`
	Semester     int       `json:"semester" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Enrollment is a student's registration in one offering
type Enrollment struct {
	EnrollmentID  uuid.UUID `json:"enrollmentId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	StudentID     uuid.UUID `json:"studentId" gorm:"type:uuid;not null"`
	OfferingID    uuid.UUID `json:"offeringId" gorm:"type:uuid;not null"`
	AttemptNumber int       `json:"attemptNumber" gorm:"not null;default:1"`
	CreatedAt     time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// SessionStatus is the state of an attendance session
type SessionStatus string

const (
	SessionUnscheduled SessionStatus = "unscheduled"
	SessionHeld        SessionStatus = "held"
	SessionCanceled    SessionStatus = "canceled"
	SessionRescheduled SessionStatus = "rescheduled"
)

// AttendanceSession is one dated, numbered class meeting of an offering
type AttendanceSession struct {
	SessionID       uuid.UUID     `json:"sessionId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OfferingID      uuid.UUID     `json:"offeringId" gorm:"type:uuid;not null"`
	TeacherID       *uuid.UUID    `json:"teacherId,omitempty" gorm:"type:uuid"`
	ClassDate       time.Time     `json:"classDate" gorm:"type:date;not null"`
	PeriodNumber    int           `json:"periodNumber" gorm:"not null"`
	Status          SessionStatus `json:"status" gorm:"type:text;not null;default:held"`
	SyllabusCovered *string       `json:"syllabusCovered,omitempty"`
	CreatedAt       time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

// RecordStatus is the per-student attendance status.
// RecordUnmarked is never stored: it is represented by the absence of a record.
type RecordStatus string

const (
	RecordUnmarked RecordStatus = "unmarked"
	RecordPresent  RecordStatus = "present"
	RecordAbsent   RecordStatus = "absent"
)

// AttendanceRecord is a student's status in one session
type AttendanceRecord struct {
	RecordID  uuid.UUID    `json:"recordId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	SessionID uuid.UUID    `json:"sessionId" gorm:"type:uuid;not null"`
	StudentID uuid.UUID    `json:"studentId" gorm:"type:uuid;not null"`
	Status    RecordStatus `json:"status" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time    `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ComponentType is the kind of assessment a test component belongs to
type ComponentType string

const (
	ComponentTheory ComponentType = "theory"
	ComponentLab    ComponentType = "lab"
)

// TestComponent is a named, weighted assessment item of an offering.
// When the three Condition* fields are set the component is conditionally
// eligible: its mark only counts while first+second < threshold.
type TestComponent struct {
	ComponentID        uuid.UUID     `json:"componentId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OfferingID         uuid.UUID     `json:"offeringId" gorm:"type:uuid;not null"`
	Name               string        `json:"name" gorm:"not null"`
	Type               ComponentType `json:"type" gorm:"type:text;not null"`
	MaxMarks           float64       `json:"maxMarks" gorm:"not null"`
	Weightage          float64       `json:"weightage" gorm:"not null;default:0"`
	ConditionFirstID   *uuid.UUID    `json:"conditionFirstId,omitempty" gorm:"type:uuid"`
	ConditionSecondID  *uuid.UUID    `json:"conditionSecondId,omitempty" gorm:"type:uuid"`
	ConditionThreshold *float64      `json:"conditionThreshold,omitempty"`
	CreatedAt          time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt          time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

// StudentMark is the score of one enrollment on one component.
// A nil MarksObtained is a stored null.
type StudentMark struct {
	MarkID          uuid.UUID `json:"markId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EnrollmentID    uuid.UUID `json:"enrollmentId" gorm:"type:uuid;not null"`
	TestComponentID uuid.UUID `json:"testComponentId" gorm:"type:uuid;not null"`
	MarksObtained   *float64  `json:"marksObtained"`
	CreatedAt       time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ReconciliationAction names a logged reconciliation decision
type ReconciliationAction string

const (
	ActionMergeOffering     ReconciliationAction = "merge_offering"
	ActionMergeSection      ReconciliationAction = "merge_section"
	ActionMigrateEnrollment ReconciliationAction = "migrate_enrollment"
	ActionPlacementRejected ReconciliationAction = "placement_rejected"
	ActionAssignTeacher     ReconciliationAction = "assign_teacher"
)

// ReconciliationLog is an append-only audit row for every merge/delete decision
type ReconciliationLog struct {
	LogID      uuid.UUID            `json:"logId" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	RunID      uuid.UUID            `json:"runId" gorm:"type:uuid;not null;index"`
	Action     ReconciliationAction `json:"action" gorm:"type:text;not null"`
	Scope      string               `json:"scope" gorm:"not null"`
	SurvivorID *uuid.UUID           `json:"survivorId,omitempty" gorm:"type:uuid"`
	DonorID    *uuid.UUID           `json:"donorId,omitempty" gorm:"type:uuid"`
	Reason     string               `json:"reason" gorm:"not null"`
	Details    datatypes.JSONMap    `json:"details,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time            `json:"createdAt" gorm:"autoCreateTime"`
}
