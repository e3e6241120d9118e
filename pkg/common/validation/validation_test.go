package validation

import (
	"errors"
	"strings"
	"testing"

	wferrors "github.com/vnykmshr/wareflow/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("dispatch", "workers", tt.value)
			if tt.wantError {
				if !wferrors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantError bool
	}{
		{"positive value", 10.5, false},
		{"zero value", 0.0, false},
		{"negative value", -1.5, true},
		{"small negative", -0.001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("correction", "threshold", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateNonNegative(%v) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
		})
	}
}

func TestValidatePositiveFloat(t *testing.T) {
	if err := ValidatePositiveFloat("dispatch", "rate", 0); err == nil {
		t.Error("expected error for zero rate")
	}
	if err := ValidatePositiveFloat("dispatch", "rate", 0.5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantError bool
	}{
		{"lower bound", 0, false},
		{"upper bound", 1, false},
		{"inside", 0.3, false},
		{"below", -0.1, true},
		{"above", 1.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange("scheduler", "sensitivity", tt.value, 0, 1)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateRange(%v) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
		})
	}
}

func TestValidateNotEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{"non-empty string", "@every 5m", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotEmpty("serve", "cron", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateNotEmpty(%q) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
		})
	}
}

func TestValidateOneOf(t *testing.T) {
	if err := ValidateOneOf("assignment", "fallback", "reuse", "reuse", "fail"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateOneOf("assignment", "fallback", "retry", "reuse", "fail")
	if err == nil {
		t.Fatal("expected error for unsupported value")
	}
	if !strings.Contains(err.Error(), "reuse, fail") {
		t.Errorf("hint should list allowed values, got %q", err.Error())
	}
}

func TestValidationErrorWrapping(t *testing.T) {
	err := ValidatePositive("synth", "orders", 0)
	if !errors.Is(err, wferrors.ErrInvalidConfiguration) {
		t.Error("validation errors should wrap ErrInvalidConfiguration")
	}

	var verr *wferrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatal("expected *ValidationError")
	}
	if verr.Module != "synth" || verr.Field != "orders" {
		t.Errorf("got module=%q field=%q", verr.Module, verr.Field)
	}
}
