package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/sitefront/tenant-gateway/internal/codec"
	"github.com/sitefront/tenant-gateway/internal/domain"
)

type authorizationKey struct{}

// RequireAuthorization rejects requests without an Authorization header with a
// 401 before any handler runs. The credential is not validated here; the
// content API does that. The raw header value is stored in the context for
// forwarding.
func RequireAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || strings.EqualFold(header, "Bearer") {
			AddLogField(r.Context(), "auth", "missing")
			codec.WriteError(w, domain.ErrUnauthorized("Unauthorized"))
			return
		}
		ctx := context.WithValue(r.Context(), authorizationKey{}, header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthorization returns the Authorization header accepted by
// RequireAuthorization, or "" when none was stored.
func GetAuthorization(ctx context.Context) string {
	if v, ok := ctx.Value(authorizationKey{}).(string); ok {
		return v
	}
	return ""
}

// BearerToken extracts the token from a "Bearer <token>" header value. Values
// without the scheme are returned as-is.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return header
}
