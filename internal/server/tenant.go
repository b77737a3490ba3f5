package server

import (
	"net/http"
	"path"
	"strings"

	"github.com/sitefront/tenant-gateway/internal/tenant"
)

// staticPrefixes are never tenant-resolved.
var staticPrefixes = []string{
	"/_next/static",
	"/_next/image",
	"/static/",
}

var staticFiles = map[string]bool{
	"/favicon.ico": true,
	"/robots.txt":  true,
}

var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".avif": true,
	".svg": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true,
}

// apiPrefix is always tenant-resolved, whatever the path looks like.
const apiPrefix = "/api/"

// IsStaticAsset reports whether a path is excluded from tenant resolution.
func IsStaticAsset(p string) bool {
	if p == "/api" || strings.HasPrefix(p, apiPrefix) {
		return false
	}
	if staticFiles[p] {
		return true
	}
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return staticExtensions[strings.ToLower(path.Ext(p))]
}

// TenantMiddleware resolves the tenant slug from the Host header and propagates
// it on the forwarded request, the response, and the request context. It never
// blocks or rejects; unparseable hosts resolve to the default slug.
func TenantMiddleware(resolver *tenant.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsStaticAsset(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			slug := resolver.ResolveSlug(r.Host)

			// Inbound values are replaced so clients cannot pick a tenant.
			r.Header.Set(tenant.HeaderSlug, slug)
			w.Header().Set(tenant.HeaderSlug, slug)

			next.ServeHTTP(w, r.WithContext(tenant.WithSlug(r.Context(), slug)))
		})
	}
}
