// Package tenant maps inbound hostnames to tenant slugs and tenant slugs to API
// credentials.
package tenant

import (
	"context"
	"os"
	"strings"
)

// HeaderSlug carries the resolved tenant slug on forwarded requests and responses.
const HeaderSlug = "x-tenant-slug"

// HeaderAPIKey carries the tenant's credential to the content API.
const HeaderAPIKey = "X-API-Key"

// apiKeyEnvPrefix prefixes per-tenant credential variables.
const apiKeyEnvPrefix = "TENANT_API_KEY_"

// contextKey is the type for tenant context keys
type contextKey string

const slugContextKey contextKey = "tenant_slug"

// WithSlug returns a context carrying the resolved tenant slug.
func WithSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, slugContextKey, slug)
}

// SlugFromContext returns the slug stored by WithSlug.
func SlugFromContext(ctx context.Context) (string, bool) {
	slug, ok := ctx.Value(slugContextKey).(string)
	return slug, ok
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Credentials resolves the API key the content API expects for a tenant.
type Credentials struct {
	globalKey string
	lookup    LookupFunc
}

// NewCredentials creates a resolver that falls back to globalKey. A nil lookup
// reads the process environment.
func NewCredentials(globalKey string, lookup LookupFunc) *Credentials {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Credentials{globalKey: globalKey, lookup: lookup}
}

// EnvName returns the variable holding slug's dedicated key, e.g.
// "ridgeline-homes" -> "TENANT_API_KEY_RIDGELINE_HOMES".
func EnvName(slug string) string {
	return apiKeyEnvPrefix + strings.ReplaceAll(strings.ToUpper(slug), "-", "_")
}

// APIKey returns the tenant-specific key when configured, otherwise the global
// key. It never fails; the worst case is an empty string.
func (c *Credentials) APIKey(slug string) string {
	if slug == "" {
		return c.globalKey
	}
	if key, ok := c.lookup(EnvName(slug)); ok && key != "" {
		return key
	}
	return c.globalKey
}
