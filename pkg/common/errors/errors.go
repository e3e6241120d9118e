// Package errors defines the error kinds shared by the wareflow packages.
//
// Sentinel errors are matched with errors.Is. ValidationError and
// OperationError carry structured detail and unwrap to a sentinel or cause.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrRateLimited indicates that a command dispatch was throttled
	ErrRateLimited = errors.New("rate limited")
)

// Warehouse failure kinds surfaced by the pipeline stages.
var (
	// ErrInvalidTopology indicates a partition graph that references unknown
	// partitions or has no partitions at all.
	ErrInvalidTopology = errors.New("invalid topology")

	// ErrUnknownEquipmentCategory indicates an equipment category with no
	// registered roster.
	ErrUnknownEquipmentCategory = errors.New("unknown equipment category")

	// ErrEmptyOrderSet indicates a decomposition request without orders.
	ErrEmptyOrderSet = errors.New("empty order set")

	// ErrNoAvailableEquipment indicates that no unit of the required category
	// is in normal operation and fallback reuse is disabled.
	ErrNoAvailableEquipment = errors.New("no available equipment")
)

// ValidationError describes a rejected configuration or input value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure of a named operation inside a module.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError for module.operation.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsWarehouseFault reports whether err is one of the warehouse failure kinds.
func IsWarehouseFault(err error) bool {
	return errors.Is(err, ErrInvalidTopology) ||
		errors.Is(err, ErrUnknownEquipmentCategory) ||
		errors.Is(err, ErrEmptyOrderSet) ||
		errors.Is(err, ErrNoAvailableEquipment)
}
