package appcore

import (
	"fmt"

	"github.com/lllypuk/threadline/internal/domain/errs"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, errs.ErrInvalidInput) match validation failures.
func (e ValidationError) Unwrap() error {
	return errs.ErrInvalidInput
}

// NewValidationError creates a ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
