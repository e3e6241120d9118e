package validation

import (
	"fmt"
	"strings"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return wferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that a numeric value is non-negative (>= 0).
func ValidateNonNegative(module, field string, value float64) error {
	if value < 0 {
		return wferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidatePositiveFloat validates that a float64 value is positive (> 0).
func ValidatePositiveFloat(module, field string, value float64) error {
	if value <= 0 {
		return wferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateRange validates that min <= value <= max.
func ValidateRange(module, field string, value, min, max float64) error {
	if value < min || value > max {
		return wferrors.NewValidationError(module, field, value, "out of range").
			WithHint(fmt.Sprintf("use a value between %g and %g", min, max))
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
func ValidateNotEmpty(module, field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return wferrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateOneOf validates that value is one of allowed.
func ValidateOneOf(module, field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return wferrors.NewValidationError(module, field, value, "unsupported value").
		WithHint("use one of: " + strings.Join(allowed, ", "))
}
