package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinels for errors.Is matching. Every typed error below unwraps to one of them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrPlacement    = errors.New("placement violation")
	ErrAccessDenied = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
	ErrDependency   = errors.New("blocked by dependents")
)

// ValidationError reports malformed input; Field names the offending field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a would-be uniqueness violation
type ConflictError struct {
	Entity  string `json:"entity"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

func NewConflictError(entity, key, format string, args ...any) *ConflictError {
	return &ConflictError{Entity: entity, Key: key, Message: fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict on %s: %s", e.Entity, e.Key, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PlacementError reports a move across an organizational boundary
type PlacementError struct {
	StudentID  uuid.UUID        `json:"studentId"`
	OfferingID uuid.UUID        `json:"offeringId"`
	Reasons    []PlacementReason `json:"reasons"`
}

func NewPlacementError(studentID, offeringID uuid.UUID, reasons ...PlacementReason) *PlacementError {
	return &PlacementError{StudentID: studentID, OfferingID: offeringID, Reasons: reasons}
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("student %s cannot be placed in offering %s: %v", e.StudentID, e.OfferingID, e.Reasons)
}

func (e *PlacementError) Unwrap() error { return ErrPlacement }

// AccessDeniedError reports a principal acting on an offering it does not own
type AccessDeniedError struct {
	PrincipalID uuid.UUID `json:"principalId"`
	OfferingID  uuid.UUID `json:"offeringId"`
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("principal %s does not own offering %s", e.PrincipalID, e.OfferingID)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// NotFoundError reports a referenced entity that does not exist
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NoMatchingOfferingError is returned when no offering exists for a
// student's section and term
type NoMatchingOfferingError struct {
	StudentID uuid.UUID `json:"studentId"`
	CourseID  uuid.UUID `json:"courseId"`
	SectionID uuid.UUID `json:"sectionId"`
	TermID    uuid.UUID `json:"academicTermId"`
}

func (e *NoMatchingOfferingError) Error() string {
	return fmt.Sprintf("no offering of course %s for section %s in term %s", e.CourseID, e.SectionID, e.TermID)
}

func (e *NoMatchingOfferingError) Unwrap() error { return ErrNotFound }

// DependencyError reports a deletion blocked by live dependents
type DependencyError struct {
	Entity     string `json:"entity"`
	ID         string `json:"id"`
	Dependents string `json:"dependents"`
	Count      int64  `json:"count"`
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s %s has %d %s; use cascade to delete", e.Entity, e.ID, e.Count, e.Dependents)
}

func (e *DependencyError) Unwrap() error { return ErrDependency }
