// Package cache memoizes tenant slug to tenant id lookups. The cache is best
// effort: a miss costs one extra upstream fetch and concurrent fills are
// harmless.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sitefront/tenant-gateway/internal/metrics"
)

// TenantIDCache stores tenant ids by slug.
type TenantIDCache interface {
	Get(ctx context.Context, slug string) (string, bool)
	Set(ctx context.Context, slug, id string)
	// Reset drops every entry.
	Reset(ctx context.Context)
}

// Memory is a process-lifetime TenantIDCache.
type Memory struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{ids: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, slug string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[slug]
	return id, ok
}

func (m *Memory) Set(_ context.Context, slug, id string) {
	m.mu.Lock()
	m.ids[slug] = id
	m.mu.Unlock()
}

func (m *Memory) Reset(context.Context) {
	m.mu.Lock()
	m.ids = make(map[string]string)
	m.mu.Unlock()
}

// FetchFunc loads a tenant id from the content API.
type FetchFunc func(ctx context.Context, slug string) (string, error)

// Resolver fronts a FetchFunc with a TenantIDCache. Concurrent misses for the
// same slug share one fetch.
type Resolver struct {
	cache   TenantIDCache
	fetch   FetchFunc
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResolver creates a resolver. m may be nil.
func NewResolver(c TenantIDCache, fetch FetchFunc, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cache: c, fetch: fetch, metrics: m, logger: logger}
}

// TenantID returns the cached id for slug or fetches and caches it. Empty ids
// are never cached.
func (r *Resolver) TenantID(ctx context.Context, slug string) (string, error) {
	if id, ok := r.cache.Get(ctx, slug); ok {
		if r.metrics != nil {
			r.metrics.TenantCacheHits.Inc()
		}
		return id, nil
	}
	if r.metrics != nil {
		r.metrics.TenantCacheMiss.Inc()
	}

	v, err, shared := r.group.Do(slug, func() (any, error) {
		id, err := r.fetch(ctx, slug)
		if err != nil {
			return "", err
		}
		if id != "" {
			r.cache.Set(ctx, slug, id)
		}
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve tenant id for %q: %w", slug, err)
	}
	if shared {
		r.logger.DebugContext(ctx, "tenant id fetch shared", slog.String("tenant", slug))
	}
	return v.(string), nil
}

// Reset clears the underlying cache.
func (r *Resolver) Reset(ctx context.Context) {
	r.cache.Reset(ctx)
}
