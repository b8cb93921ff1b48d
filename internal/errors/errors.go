// Package errors provides the structured application error taxonomy used at
// service boundaries.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInvalidState indicates an operation not permitted in the current job state.
	ErrCodeInvalidState ErrorCode = "invalid_state"
	// ErrCodeStoreUnavailable indicates the durable store could not be reached.
	ErrCodeStoreUnavailable ErrorCode = "store_unavailable"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and
// optional cause. It supports errors.Is and errors.As via Unwrap.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict wraps a cause with the conflict code.
func Conflict(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message, Cause: cause}
}

// Validation wraps a cause with the validation code.
func Validation(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Cause: cause}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// InvalidState wraps a cause with the invalid_state code.
func InvalidState(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeInvalidState, Message: message, Cause: cause}
}

// StoreUnavailable wraps a connectivity failure with the store_unavailable code.
func StoreUnavailable(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeStoreUnavailable, Message: message, Cause: cause}
}

// Internal wraps an unexpected failure with the internal code.
func Internal(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Cause: cause}
}

// Wrap attaches a cause to a new AppError with the given code and message.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal when err is not
// an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
