package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sitefront/tenant-gateway/internal/domain"
)

// FetchError describes a failed data-access call whose caller is expected to
// degrade rather than fail.
type FetchError struct {
	Resource string
	// StatusCode is the upstream status, or 0 when the upstream was unreachable.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Resource, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the upstream answered 404.
func (e *FetchError) NotFound() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

func newFetchError(resource string, err error) *FetchError {
	fe := &FetchError{Resource: resource, Err: err}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Type == domain.ErrorTypeUpstreamRejected {
		fe.StatusCode = apiErr.StatusCode
	}
	return fe
}

// Result carries either a value or the reason it could not be fetched. Callers
// pick their fallback explicitly with OrElse.
type Result[T any] struct {
	Value T
	Err   *FetchError
}

// Ok builds a successful result.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail builds a failed result.
func Fail[T any](resource string, err error) Result[T] {
	return Result[T]{Err: newFetchError(resource, err)}
}

// OK reports whether the fetch succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// OrElse returns the value, or fallback when the fetch failed.
func (r Result[T]) OrElse(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

// Get returns the value and the error as a plain error.
func (r Result[T]) Get() (T, error) {
	if r.Err != nil {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}
