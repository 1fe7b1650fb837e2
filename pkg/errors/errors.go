package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found, or no source produced a result
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeConfiguration indicates a required credential or endpoint is absent.
	// Not retried.
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// ErrorTypeUpstream indicates a non-2xx or malformed response from a place source
	ErrorTypeUpstream ErrorType = "UPSTREAM"

	// ErrorTypePartialPersist indicates some rows of a batch write failed
	ErrorTypePartialPersist ErrorType = "PARTIAL_PERSIST"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	// Status carries the upstream HTTP status for UPSTREAM errors, 0 otherwise.
	Status int
	Err    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewConfigurationError creates an error for a missing credential or endpoint
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// NewUpstreamError creates an error for a failed place source call.
// status is the upstream HTTP status, or 0 when the call never got a response.
func NewUpstreamError(message string, status int, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeUpstream,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NewPartialPersistError aggregates per-row write failures
func NewPartialPersistError(failed, total int, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePartialPersist,
		Message: fmt.Sprintf("%d of %d rows failed to persist", failed, total),
		Err:     err,
	}
}

// IsType reports whether any AppError in err's chain has the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// StatusOf returns the upstream status carried by err, or 0
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}
