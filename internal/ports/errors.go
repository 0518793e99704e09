package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrInvalidRequest indicates that the service rejected the request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrCacheCorrupted indicates that cached data is corrupted or invalid.
	ErrCacheCorrupted = errors.New("cache corrupted")

	// ErrCapabilityUnavailable indicates that an optional capability such as
	// the grammar checker or the linguistic tokenizer is not configured.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// CheckerError represents a failure of a grammar-check backend.
// Kind classifies the failure with one of the sentinels above and Err keeps
// the backend's own error.
type CheckerError struct {
	// Backend names the grammar-check backend that failed.
	Backend string

	// Kind is the classified failure, e.g. ErrRateLimited.
	Kind error

	// StatusCode is the HTTP status returned by the backend, if any.
	StatusCode int

	// Message is the backend's error message.
	Message string

	// Err is the underlying error that occurred.
	Err error

	// RetryAfter indicates how long to wait before retrying, if applicable.
	RetryAfter *time.Duration
}

// Error implements the error interface for CheckerError.
func (e *CheckerError) Error() string {
	msg := fmt.Sprintf("grammar checker %s", e.Backend)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Kind != nil {
		msg += fmt.Sprintf(" [%v]", e.Kind)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap exposes both the classification and the underlying error.
func (e *CheckerError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsRetryable returns true if the error is temporary and the check can be
// retried.
func (e *CheckerError) IsRetryable() bool {
	return errors.Is(e.Kind, ErrRateLimited) ||
		errors.Is(e.Kind, ErrServiceUnavailable) ||
		errors.Is(e.Kind, ErrTimeout)
}

// NewCheckerError creates a new CheckerError with the given details.
func NewCheckerError(backend string, kind error, statusCode int, message string, err error) *CheckerError {
	return &CheckerError{
		Backend:    backend,
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// IsRetryable reports whether err carries a retryable CheckerError.
func IsRetryable(err error) bool {
	var cerr *CheckerError
	return errors.As(err, &cerr) && cerr.IsRetryable()
}

// CacheError represents an error from cache operations.
// It includes the key and operation that failed.
type CacheError struct {
	// Key is the cache key that was involved in the failed operation.
	Key string

	// Operation is the name of the cache operation that failed.
	Operation string

	// Err is the underlying error that caused the cache operation to fail.
	Err error
}

// Error implements the error interface for CacheError.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError creates a new CacheError with the given details.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}
