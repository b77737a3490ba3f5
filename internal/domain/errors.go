// Package domain provides canonical error types and content records for the gateway.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeUpstreamUnreachable indicates a network-level failure talking to the backend.
	ErrorTypeUpstreamUnreachable ErrorType = "upstream_unreachable"

	// ErrorTypeUpstreamRejected indicates the backend answered with a non-2xx status.
	ErrorTypeUpstreamRejected ErrorType = "upstream_rejected"

	// ErrorTypeUnauthorized indicates a missing caller credential on a protected route.
	ErrorTypeUnauthorized ErrorType = "unauthorized"

	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeRateLimit indicates rate limiting was triggered.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// APIError represents a canonical error returned by the proxy layer and rendered
// as a JSON envelope by the codec package.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// StatusCode is the suggested HTTP status code
	StatusCode int `json:"-"`

	// Cause is the underlying error, if any. It is never rendered to clients.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.Type == ErrorTypeUpstreamRejected {
		return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeUpstreamRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithCause records the underlying error.
func (e *APIError) WithCause(err error) *APIError {
	e.Cause = err
	return e
}

// ErrUpstreamUnreachable creates a transport failure error.
func ErrUpstreamUnreachable(err error) *APIError {
	return NewAPIError(ErrorTypeUpstreamUnreachable, "upstream unreachable").
		WithStatusCode(http.StatusInternalServerError).
		WithCause(err)
}

// ErrUpstreamRejected creates an error carrying the backend's status and message.
func ErrUpstreamRejected(status int, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return NewAPIError(ErrorTypeUpstreamRejected, message).WithStatusCode(status)
}

// ErrUnauthorized creates a missing-credential error.
func ErrUnauthorized(message string) *APIError {
	return NewAPIError(ErrorTypeUnauthorized, message)
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *APIError {
	return NewAPIError(ErrorTypeRateLimit, message)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}
