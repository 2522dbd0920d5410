// Package errors provides structured error handling for the application
// Following enterprise patterns for error management and observability
package errors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorCode represents an error code
type ErrorCode string

// Common error codes following RESTful API conventions
const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeNotFound         ErrorCode = "NOT_FOUND"

	// Server errors (5xx)
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Engine errors
	CodeProfileNotFound    ErrorCode = "PROFILE_NOT_FOUND"
	CodeArtifactRead       ErrorCode = "ARTIFACT_READ_ERROR"
	CodeLockTimeout        ErrorCode = "LOCK_TIMEOUT"
	CodeEmptyCandidatePool ErrorCode = "EMPTY_CANDIDATE_POOL"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound, CodeProfileNotFound:
		return http.StatusNotFound
	case CodeLockTimeout:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// Predefined error constructors for common scenarios

// NewValidationError creates a validation error with a field-level message
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewProfileNotFoundError signals that the user has no preference profile on file.
// Recoverable by the caller: the user must complete onboarding first.
func NewProfileNotFoundError(userID string) *AppError {
	return NewAppError(
		CodeProfileNotFound,
		"Preference profile not found",
		fmt.Sprintf("No profile exists for user %s", userID),
	).WithMetadata("user_id", userID)
}

// NewArtifactReadError signals unreadable or corrupt artifact files.
// Not retried automatically; requires artifact regeneration.
func NewArtifactReadError(path string, cause error) *AppError {
	return NewAppError(
		CodeArtifactRead,
		"Artifact read failed",
		fmt.Sprintf("Failed to load artifact %s", path),
	).WithMetadata("path", path).WithCause(cause)
}

// NewLockTimeoutError signals that the per-key advisory lock could not be
// acquired within the wait budget. Treated as a soft skip, not a fault.
func NewLockTimeoutError(key string) *AppError {
	return NewAppError(
		CodeLockTimeout,
		"Lock acquisition timed out",
		fmt.Sprintf("Key %s is held by another in-flight request", key),
	).WithMetadata("lock_key", key)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternal
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// CompositeError aggregates the failures of an ordered list of loader
// strategies into one error value.
type CompositeError struct {
	Op       string
	Failures []error
}

// Error implements the error interface
func (c *CompositeError) Error() string {
	parts := make([]string, len(c.Failures))
	for i, err := range c.Failures {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%s: all strategies failed: [%s]", c.Op, strings.Join(parts, "; "))
}

// NewCompositeError creates a composite error from accumulated strategy failures
func NewCompositeError(op string, failures []error) *CompositeError {
	return &CompositeError{Op: op, Failures: failures}
}
