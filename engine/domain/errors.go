package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and systemic failures.
var (
	ErrInvalidFeature  = errors.New("invalid feature")
	ErrMissingName     = errors.New("feature_name is required")
	ErrMissingDescription = errors.New("description is required")
	ErrCorpusEmpty     = errors.New("legal corpus contains no documents")
	ErrIndexUnavailable = errors.New("embedding index unavailable")
)

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
