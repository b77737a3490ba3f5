// Package codec renders proxy results and errors as JSON responses.
package codec

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sitefront/tenant-gateway/internal/domain"
)

// maxMessageRunes bounds error messages sent to clients.
const maxMessageRunes = 200

// unreachableMessage is the fixed body for transport failures.
const unreachableMessage = "Internal server error"

// ErrorResponse is a rendered error envelope.
type ErrorResponse struct {
	StatusCode int
	Body       []byte
}

// envelope is the wire shape of every error the gateway returns.
type envelope struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ToCanonicalError converts any error to a domain.APIError.
// If the error is already a domain.APIError, it returns it directly.
// Otherwise, it wraps the error in a generic server error.
func ToCanonicalError(err error) *domain.APIError {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return domain.ErrServer(unreachableMessage).WithCause(err)
}

// FormatError converts an error to the JSON error envelope. Upstream stack traces
// and transport details never reach the client: unreachable upstreams render a
// fixed message and everything else is truncated.
func FormatError(err error) *ErrorResponse {
	apiErr := ToCanonicalError(err)
	status := apiErr.HTTPStatusCode()

	message := apiErr.Message
	switch apiErr.Type {
	case domain.ErrorTypeUpstreamUnreachable, domain.ErrorTypeServer:
		message = unreachableMessage
	}

	body, _ := json.Marshal(envelope{
		Error:  Truncate(message, maxMessageRunes),
		Status: status,
	})

	return &ErrorResponse{
		StatusCode: status,
		Body:       body,
	}
}

// WriteError writes err as a JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	resp := FormatError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteError(w, domain.ErrServer("failed to encode response").WithCause(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// WriteRaw writes an already-encoded JSON body.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
