package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so that wrapped clones compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss  = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// ErrConfiguration marks missing settings, unknown day types or malformed break/fine rules.
	ErrConfiguration = New("CONFIGURATION_ERROR", http.StatusUnprocessableEntity, "configuration error")
	// ErrDataIntegrity marks conflicting approved day records.
	ErrDataIntegrity = New("DATA_INTEGRITY_ERROR", http.StatusConflict, "data integrity error")
	// ErrNorm marks a norm that could not be computed as configured.
	ErrNorm = New("NORM_ERROR", http.StatusUnprocessableEntity, "norm calculation error")
	// ErrTransientStorage marks a retryable read/write failure.
	ErrTransientStorage = New("TRANSIENT_STORAGE_ERROR", http.StatusServiceUnavailable, "storage temporarily unavailable")
	ErrCancelled        = New("CANCELLED", http.StatusRequestTimeout, "operation cancelled")
	// ErrTimeout marks one employee-month that ran past its deadline; it is retryable.
	ErrTimeout = New("EMPLOYEE_MONTH_TIMEOUT", http.StatusGatewayTimeout, "employee-month calculation timed out")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Configuration builds a configuration error with a formatted message.
func Configuration(format string, args ...interface{}) *Error {
	return Clone(ErrConfiguration, fmt.Sprintf(format, args...))
}

// DataIntegrity builds a data integrity error with a formatted message.
func DataIntegrity(format string, args ...interface{}) *Error {
	return Clone(ErrDataIntegrity, fmt.Sprintf(format, args...))
}

// Norm builds a norm error with a formatted message.
func Norm(format string, args ...interface{}) *Error {
	return Clone(ErrNorm, fmt.Sprintf(format, args...))
}

// Transient wraps a storage failure as retryable.
func Transient(err error, message string) *Error {
	return Wrap(err, ErrTransientStorage.Code, ErrTransientStorage.Status, message)
}

// Timeout wraps a deadline hit by a single unit of work as retryable.
func Timeout(err error, message string) *Error {
	return Wrap(err, ErrTimeout.Code, ErrTimeout.Status, message)
}

// IsRetryable reports whether the error chain carries a transient storage error or a timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransientStorage) || errors.Is(err, ErrTimeout)
}

// IsRetryableCode is IsRetryable for codes that were already flattened into stats.
func IsRetryableCode(code string) bool {
	return code == ErrTransientStorage.Code || code == ErrTimeout.Code
}
