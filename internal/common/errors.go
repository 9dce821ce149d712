// Package common defines sentinel errors and small helpers shared by the
// storage, repository and service layers of MediTrack. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// Access control.
	ErrPermissionDenied = errors.New("insufficient permissions")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")

	// Input errors, see ValidationError.
	ErrValidation = errors.New("validation error")
)

// FieldError describes a rule violated by a single field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries the field-level violations found in an input.
// It unwraps to ErrValidation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Field returns the name of the first offending field, or "" if none.
func (e *ValidationError) Field() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Field
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}
