package appcore

import (
	"fmt"

	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// ValidateRequired проверяет, что строка не пустая
func ValidateRequired(field, value string) error {
	if value == "" {
		return NewValidationError(field, "is required")
	}
	return nil
}

// ValidateUUID проверяет, что UUID валиден и не пустой
func ValidateUUID(field string, id uuid.UUID) error {
	if id.IsZero() {
		return NewValidationError(field, "must be a valid UUID")
	}
	if _, err := uuid.ParseUUID(id.String()); err != nil {
		return NewValidationError(field, "must be a valid UUID")
	}
	return nil
}

// ValidateOptionalUUID проверяет UUID только если он задан
func ValidateOptionalUUID(field string, id uuid.UUID) error {
	if id.IsZero() {
		return nil
	}
	return ValidateUUID(field, id)
}

// ValidateMaxLength проверяет максимальную длину строки
func ValidateMaxLength(field, value string, maxLength int) error {
	if len(value) > maxLength {
		return NewValidationError(field, fmt.Sprintf("must be at most %d characters", maxLength))
	}
	return nil
}

// ValidateRange проверяет, что значение лежит в [minValue, maxValue]
func ValidateRange(field string, value, minValue, maxValue int) error {
	if value < minValue || value > maxValue {
		return NewValidationError(field, fmt.Sprintf("must be between %d and %d", minValue, maxValue))
	}
	return nil
}
