// Package errors provides severity-aware error types for the estimation pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// EstimationError is a structured error with context.
type EstimationError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
	Value    string   `json:"value,omitempty"`
}

func (e *EstimationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s (field: %s)", e.Severity, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeUnknownModule     = "UNKNOWN_MODULE"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeInternalInvariant = "INTERNAL_INVARIANT"
)

// NewUnknownModuleError creates an error for a selected module missing from the catalog.
func NewUnknownModuleError(moduleID string) *EstimationError {
	return &EstimationError{
		Code:     ErrCodeUnknownModule,
		Message:  fmt.Sprintf("module not found in catalog: %s", moduleID),
		Severity: SeverityError,
		Field:    "modules",
		Value:    moduleID,
	}
}

// NewValidationError creates an error for rejected input. The message should name the field.
func NewValidationError(field, value, message string) *EstimationError {
	return &EstimationError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Severity: SeverityError,
		Field:    field,
		Value:    value,
	}
}

// NewInvariantError reports a reconciliation mismatch. It is never caused by user input.
func NewInvariantError(invariant, message string) *EstimationError {
	return &EstimationError{
		Code:     ErrCodeInternalInvariant,
		Message:  message,
		Severity: SeverityFatal,
		Field:    invariant,
	}
}

// Code returns the error code of err, or "" when err carries none.
func Code(err error) string {
	var e *EstimationError
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUserError reports whether err was caused by the request rather than the engine.
func IsUserError(err error) bool {
	switch Code(err) {
	case ErrCodeUnknownModule, ErrCodeValidationFailed:
		return true
	}
	return false
}

// IsInvariantError reports whether err is a reconciliation failure.
func IsInvariantError(err error) bool {
	return Code(err) == ErrCodeInternalInvariant
}
