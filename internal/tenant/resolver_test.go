package tenant

import (
	"context"
	"testing"

	"github.com/sitefront/tenant-gateway/internal/pkg/config"
)

var testRules = []config.HostRule{
	{Host: "ridgelinehomes.net", Slug: "ridgeline-homes"},
	{Host: "www.ridgelinehomes.net", Slug: "ridgeline-homes"},
	{Host: "Cedarbuilders.COM", Slug: "cedar-builders"},
	{Host: "*.sites.example.com"},
	{Host: "*.staging.example.com", Slug: "staging"},
}

func TestResolver_ResolveSlug(t *testing.T) {
	r := NewResolver(testRules, "default-tenant")

	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "exact match", host: "ridgelinehomes.net", want: "ridgeline-homes"},
		{name: "exact match with port", host: "ridgelinehomes.net:3000", want: "ridgeline-homes"},
		{name: "case insensitive", host: "RIDGELINEHOMES.NET", want: "ridgeline-homes"},
		{name: "table keys normalised", host: "cedarbuilders.com", want: "cedar-builders"},
		{name: "trailing dot", host: "ridgelinehomes.net.", want: "ridgeline-homes"},
		{name: "wildcard extracts subdomain", host: "acme.sites.example.com", want: "acme"},
		{name: "wildcard nearest label", host: "www.acme.sites.example.com", want: "acme"},
		{name: "wildcard bare www falls through", host: "www.sites.example.com", want: "default-tenant"},
		{name: "wildcard with fixed slug", host: "pr-12.staging.example.com", want: "staging"},
		{name: "wildcard does not match apex", host: "sites.example.com", want: "default-tenant"},
		{name: "unmapped host", host: "example.com", want: "default-tenant"},
		{name: "empty host", host: "", want: "default-tenant"},
		{name: "ipv6 with port", host: "[::1]:8080", want: "default-tenant"},
		{name: "garbage", host: "bad host/with spaces", want: "default-tenant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ResolveSlug(tt.host); got != tt.want {
				t.Errorf("ResolveSlug(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

func TestResolver_UnmappedHostsUseDefault(t *testing.T) {
	hosts := []string{"example.com", "foo.bar", "localhost", "127.0.0.1:3000", "[", ":::", "a:b:c"}

	for _, def := range []string{"", "fallback"} {
		r := NewResolver(testRules, def)
		for _, host := range hosts {
			if got := r.ResolveSlug(host); got != def {
				t.Errorf("ResolveSlug(%q) with default %q = %q", host, def, got)
			}
		}
	}
}

func TestResolver_Update(t *testing.T) {
	r := NewResolver(nil, "")
	if got := r.ResolveSlug("ridgelinehomes.net"); got != "" {
		t.Fatalf("ResolveSlug() before update = %q, want empty", got)
	}

	r.Update(config.TenantsConfig{DefaultSlug: "d", Hosts: testRules})

	if got := r.ResolveSlug("ridgelinehomes.net"); got != "ridgeline-homes" {
		t.Errorf("ResolveSlug() after update = %q, want ridgeline-homes", got)
	}
	if got := r.DefaultSlug(); got != "d" {
		t.Errorf("DefaultSlug() = %q, want d", got)
	}
}

func TestCredentials_APIKey(t *testing.T) {
	env := map[string]string{
		"TENANT_API_KEY_RIDGELINE_HOMES": "ridgeline-key",
		"TENANT_API_KEY_EMPTY":           "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	creds := NewCredentials("global-key", lookup)

	tests := []struct {
		slug string
		want string
	}{
		{slug: "ridgeline-homes", want: "ridgeline-key"},
		{slug: "unknown", want: "global-key"},
		{slug: "empty", want: "global-key"},
		{slug: "", want: "global-key"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			if got := creds.APIKey(tt.slug); got != tt.want {
				t.Errorf("APIKey(%q) = %q, want %q", tt.slug, got, tt.want)
			}
		})
	}
}

func TestCredentials_ProcessEnvironment(t *testing.T) {
	t.Setenv("TENANT_API_KEY_CEDAR_BUILDERS", "cedar-key")
	creds := NewCredentials("", nil)

	if got := creds.APIKey("cedar-builders"); got != "cedar-key" {
		t.Errorf("APIKey() = %q, want cedar-key", got)
	}
	if got := creds.APIKey("nobody"); got != "" {
		t.Errorf("APIKey() = %q, want empty global fallback", got)
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("ridgeline-homes"); got != "TENANT_API_KEY_RIDGELINE_HOMES" {
		t.Errorf("EnvName() = %q", got)
	}
}

func TestSlugContext(t *testing.T) {
	if _, ok := SlugFromContext(context.Background()); ok {
		t.Error("SlugFromContext() on empty context should report false")
	}
	ctx := WithSlug(context.Background(), "ridgeline-homes")
	if slug, ok := SlugFromContext(ctx); !ok || slug != "ridgeline-homes" {
		t.Errorf("SlugFromContext() = %q, %v", slug, ok)
	}
}
