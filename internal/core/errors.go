package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatConflict   ErrorCategory = "conflict"   // Key already exists / lost a race
	ErrCatState      ErrorCategory = "state"      // Queue state inconsistency
	ErrCatTimeout    ErrorCategory = "timeout"    // Wait ceiling or deadline exceeded
	ErrCatNetwork    ErrorCategory = "network"    // Store or transport failure
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the queue domain.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrAlreadyQueued reports that a record for the entrant already exists.
// Registration treats this as success, not failure.
func ErrAlreadyQueued(entrantID string) *DomainError {
	return &DomainError{
		Category:  ErrCatConflict,
		Code:      CodeAlreadyQueued,
		Message:   fmt.Sprintf("entrant already registered: %s", entrantID),
		Retryable: false,
	}
}

// ErrStore creates a store transport error. Retryable: the poll loop
// recovers by trying again on its next iteration.
func ErrStore(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      CodeStoreFailure,
		Message:   message,
		Retryable: true,
	}
}

// ErrQueueState creates a queue inconsistency error. Fatal: the caller's
// own record should always be visible in a live scan.
func ErrQueueState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrWaitCeiling reports that the entrant waited past the configured
// maximum queue duration.
func ErrWaitCeiling(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeWaitCeiling,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeAlreadyQueued = "ALREADY_QUEUED"
	CodeStoreFailure  = "STORE_FAILURE"
	CodeQueueEmpty    = "QUEUE_EMPTY"
	CodeWaitCeiling   = "WAIT_CEILING_EXCEEDED"
	CodeRerunFailed   = "RERUN_FAILED"

	// Validation error codes
	CodeMissingEntrant = "MISSING_ENTRANT_ID"
	CodeMissingTable   = "MISSING_TABLE_NAME"
	CodeInvalidConfig  = "INVALID_CONFIG"
)
