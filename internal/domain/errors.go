package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common domain errors used across the application.
var (
	// ErrValidation is wrapped by every validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or empty.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidPriority is returned for priorities outside the known set.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrDueDateNotFuture is returned when a due date is not strictly after now.
	ErrDueDateNotFuture = errors.New("due date must be in the future")

	// ErrUnauthorized is returned when no principal is attached to a request.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError. A nil err defaults to
// ErrValidation so the result always matches errors.Is(err, ErrValidation).
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes the cause. ErrValidation is always reachable.
func (e *ValidationError) Unwrap() []error {
	if errors.Is(e.Err, ErrValidation) {
		return []error{e.Err}
	}
	return []error{e.Err, ErrValidation}
}

// ValidationErrors collects messages keyed by field name.
type ValidationErrors map[string][]string

// Add records a message for field.
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// Merge copies all messages from err into v. err may be a ValidationErrors or
// a *ValidationError; anything else is recorded under the "_" key.
func (v ValidationErrors) Merge(err error) {
	var fieldErrs ValidationErrors
	var fieldErr *ValidationError
	switch {
	case errors.As(err, &fieldErrs):
		for field, msgs := range fieldErrs {
			v[field] = append(v[field], msgs...)
		}
	case errors.As(err, &fieldErr):
		v.Add(fieldErr.Field, fieldErr.Message)
	case err != nil:
		v.Add("_", err.Error())
	}
}

// Err returns v as an error, or nil when empty.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(v[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}
