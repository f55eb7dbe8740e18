package models

import (
	"errors"
	"strings"
)

var (
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("already exists")
	// ErrNotFound is returned when a record required to exist is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every ValidationErrors.
	ErrValidation = errors.New("validation failed")
)

// FieldError describes why a single input field was rejected.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every field rejected while building an input schema.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Has reports whether field was rejected.
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (v *ValidationErrors) add(field string, err error) {
	*v = append(*v, FieldError{Field: field, Message: err.Error()})
}

// ConflictError is a unique constraint violation. Field is empty when the
// conflicting field could not be determined.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return e.Field + " " + ErrConflict.Error()
}

// Is makes errors.Is(err, ErrConflict) succeed.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
