package tenant

import (
	"net"
	"strings"
	"sync/atomic"

	"github.com/sitefront/tenant-gateway/internal/pkg/config"
)

// Mapping is an immutable hostname table.
type Mapping struct {
	exact       map[string]string
	wildcards   []wildcardRule
	defaultSlug string
}

type wildcardRule struct {
	suffix string // ".example.com"
	slug   string
}

// NewMapping builds a table from host rules. Rules of the form "*.domain" match
// any subdomain of domain; later duplicates override earlier ones.
func NewMapping(rules []config.HostRule, defaultSlug string) *Mapping {
	m := &Mapping{
		exact:       make(map[string]string, len(rules)),
		defaultSlug: defaultSlug,
	}
	for _, rule := range rules {
		host := normalizeHost(rule.Host)
		if host == "" {
			continue
		}
		if strings.HasPrefix(host, "*.") {
			m.wildcards = append(m.wildcards, wildcardRule{
				suffix: host[1:],
				slug:   rule.Slug,
			})
			continue
		}
		m.exact[host] = rule.Slug
	}
	return m
}

// Resolve maps a raw Host header value to a tenant slug. It is total: unknown or
// unparseable hosts yield the default slug, which may be empty.
func (m *Mapping) Resolve(rawHost string) string {
	host := normalizeHost(rawHost)
	if host == "" {
		return m.defaultSlug
	}

	if slug, ok := m.exact[host]; ok {
		return slug
	}

	// Longest suffix wins so "*.a.example.com" beats "*.example.com".
	var best *wildcardRule
	for i := range m.wildcards {
		rule := &m.wildcards[i]
		if !strings.HasSuffix(host, rule.suffix) || len(host) == len(rule.suffix) {
			continue
		}
		if best == nil || len(rule.suffix) > len(best.suffix) {
			best = rule
		}
	}
	if best != nil {
		if best.slug != "" {
			return best.slug
		}
		sub := strings.TrimSuffix(host, best.suffix)
		if i := strings.LastIndexByte(sub, '.'); i >= 0 {
			sub = sub[i+1:]
		}
		if sub != "" && sub != "www" {
			return sub
		}
	}

	return m.defaultSlug
}

// DefaultSlug returns the fallback slug.
func (m *Mapping) DefaultSlug() string {
	return m.defaultSlug
}

// normalizeHost strips any port, lowercases, and drops a trailing dot.
func normalizeHost(raw string) string {
	host := strings.TrimSpace(raw)
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	} else if strings.Count(host, ":") == 1 {
		// "host:" with an empty or malformed port
		host = host[:strings.IndexByte(host, ':')]
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if strings.ContainsAny(host, " /\\@") {
		return ""
	}
	return host
}

// Resolver resolves slugs against a mapping that can be swapped at runtime when
// the host table is reloaded.
type Resolver struct {
	mapping atomic.Pointer[Mapping]
}

// NewResolver creates a resolver over the given rules.
func NewResolver(rules []config.HostRule, defaultSlug string) *Resolver {
	r := &Resolver{}
	r.mapping.Store(NewMapping(rules, defaultSlug))
	return r
}

// ResolveSlug maps a raw Host header value to a tenant slug.
func (r *Resolver) ResolveSlug(rawHost string) string {
	return r.mapping.Load().Resolve(rawHost)
}

// DefaultSlug returns the current fallback slug.
func (r *Resolver) DefaultSlug() string {
	return r.mapping.Load().DefaultSlug()
}

// Update replaces the host table.
func (r *Resolver) Update(cfg config.TenantsConfig) {
	r.mapping.Store(NewMapping(cfg.Hosts, cfg.DefaultSlug))
}
