package proxy

import (
	"io"
	"net/http"

	"github.com/go-chi/cors"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/tenant"
)

const resourceAuth = "auth"

// maxAuthBodyBytes caps identity service replies copied to the caller.
const maxAuthBodyBytes = 1 << 20

var (
	forwardedAuthHeaders = []string{"Cookie", "Content-Type", "Authorization"}
	returnedAuthHeaders  = []string{"Content-Type", "Location"}

	authMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
)

// authCORS reflects the caller's Origin with credentials so the sign-in pages
// on every tenant domain can reach the identity routes.
func authCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   authMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Cookie", "X-Requested-With"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// authPassthrough forwards /api/auth/* verbatim to the identity service and
// copies back the status, content type, redirect target, and every cookie.
// Redirects are returned to the browser, never followed. Error replies are
// rendered as the JSON error envelope; 5xx bodies are not shown.
func (h *Handler) authPassthrough(w http.ResponseWriter, r *http.Request) {
	if h.authURL == "" {
		h.fail(w, r, resourceAuth, domain.ErrServer("identity service not configured"))
		return
	}

	target := h.authURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		h.fail(w, r, resourceAuth, domain.ErrServer("failed to build identity request").WithCause(err))
		return
	}
	if body != nil {
		out.ContentLength = r.ContentLength
	}
	for _, name := range forwardedAuthHeaders {
		for _, v := range r.Header.Values(name) {
			out.Header.Add(name, v)
		}
	}
	if slug := h.slug(r); slug != "" {
		out.Header.Set(tenant.HeaderSlug, slug)
	}

	resp, err := h.authClient.Do(out)
	if err != nil {
		h.fail(w, r, resourceAuth, domain.ErrUpstreamUnreachable(err))
		return
	}
	defer resp.Body.Close()

	for _, name := range returnedAuthHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	for _, c := range resp.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", c)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var msg string
		if resp.StatusCode < http.StatusInternalServerError {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxAuthBodyBytes))
			msg = backend.ExtractMessage(raw)
		}
		w.Header().Del("Location")
		h.fail(w, r, resourceAuth, domain.ErrUpstreamRejected(resp.StatusCode, msg))
		return
	}

	h.count(resourceAuth, resp.StatusCode)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, io.LimitReader(resp.Body, maxAuthBodyBytes))
}
