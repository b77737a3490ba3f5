package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "error with type and message",
			err:      &APIError{Type: ErrorTypeInvalidRequest, Message: "bad request"},
			expected: "invalid_request: bad request",
		},
		{
			name:     "upstream rejection includes status",
			err:      &APIError{Type: ErrorTypeUpstreamRejected, StatusCode: http.StatusNotFound, Message: "missing"},
			expected: "upstream_rejected (404): missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected int
	}{
		{
			name:     "invalid request",
			err:      &APIError{Type: ErrorTypeInvalidRequest},
			expected: http.StatusBadRequest,
		},
		{
			name:     "unauthorized",
			err:      &APIError{Type: ErrorTypeUnauthorized},
			expected: http.StatusUnauthorized,
		},
		{
			name:     "not found error",
			err:      &APIError{Type: ErrorTypeNotFound},
			expected: http.StatusNotFound,
		},
		{
			name:     "rate limit error",
			err:      &APIError{Type: ErrorTypeRateLimit},
			expected: http.StatusTooManyRequests,
		},
		{
			name:     "server error",
			err:      &APIError{Type: ErrorTypeServer},
			expected: http.StatusInternalServerError,
		},
		{
			name:     "unreachable upstream",
			err:      ErrUpstreamUnreachable(errors.New("dial tcp: refused")),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "rejected upstream keeps status",
			err:      ErrUpstreamRejected(http.StatusConflict, "dup"),
			expected: http.StatusConflict,
		},
		{
			name:     "unknown error type",
			err:      &APIError{Type: ErrorType("unknown")},
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestErrUpstreamRejected_DefaultMessage(t *testing.T) {
	err := ErrUpstreamRejected(http.StatusBadGateway, "")
	if err.Message != "Bad Gateway" {
		t.Errorf("Message = %q, want %q", err.Message, "Bad Gateway")
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrUpstreamUnreachable(cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is() did not find the cause")
	}

	var apiErr *APIError
	wrapped := errors.Join(errors.New("outer"), err)
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As() did not find APIError")
	}
	if apiErr.Type != ErrorTypeUpstreamUnreachable {
		t.Errorf("Type = %v, want %v", apiErr.Type, ErrorTypeUpstreamUnreachable)
	}
}
