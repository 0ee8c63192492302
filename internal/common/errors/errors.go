// Package errors provides standardized error handling for the analysis pipeline.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeFetchFailed        ErrorCode = "FETCH_FAILED"
	ErrCodeContentUnusable    ErrorCode = "CONTENT_UNUSABLE"
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Request input is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError creates a non-retryable authentication error.
func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitExceededError creates a rate-limit error carrying the
// time after which the caller may retry.
func NewRateLimitExceededError(retryAfter time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitExceeded,
		Message:   "Request rate limit exceeded",
		Details:   fmt.Sprintf("retry after %s", retryAfter.Round(time.Second)),
		Retryable: true,
		Metadata: map[string]interface{}{
			"retryAfterSeconds": int(retryAfter.Seconds()) + 1,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewFetchFailedError creates an error for an unreachable or failing page.
func NewFetchFailedError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchFailed,
		Message:   "Failed to fetch the URL",
		Details:   fmt.Sprintf("url: %s, error: %v", url, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFetchStatusError creates an error for a non-2xx upstream status.
func NewFetchStatusError(url string, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeFetchFailed,
		Message:   "Upstream page returned a failure status",
		Details:   fmt.Sprintf("url: %s, status: %d", url, status),
		Retryable: false,
		Metadata: map[string]interface{}{
			"upstreamStatus": status,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewContentUnusableError creates an error for a page that yielded no
// meaningful text after parsing.
func NewContentUnusableError(url string) *StandardError {
	return &StandardError{
		Code:      ErrCodeContentUnusable,
		Message:   "Could not find any meaningful text content on the homepage",
		Details:   fmt.Sprintf("url: %s", url),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendUnavailableError creates an error for the case where every
// configured model backend failed for a single request.
func NewBackendUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendUnavailable,
		Message:   "All model backends are unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping & Utilities
// ==========================

// HTTPStatus maps error codes to HTTP response codes.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeContentUnusable:
		return http.StatusNotFound
	case ErrCodeFetchFailed:
		return http.StatusBadGateway
	case ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AsStandard extracts a StandardError from err, wrapping unknown errors
// as internal.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// RetryAfterSeconds returns the retry-after hint carried by a rate-limit
// error, or 0 when absent.
func (e *StandardError) RetryAfterSeconds() int {
	if e.Metadata == nil {
		return 0
	}
	if v, ok := e.Metadata["retryAfterSeconds"].(int); ok {
		return v
	}
	return 0
}
