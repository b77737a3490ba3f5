package runtime

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sitefront/tenant-gateway/internal/adapters/config/file"
	"github.com/sitefront/tenant-gateway/internal/cache"
	"github.com/sitefront/tenant-gateway/internal/events"
	"github.com/sitefront/tenant-gateway/internal/metrics"
	"github.com/sitefront/tenant-gateway/internal/pkg/config"
	"github.com/sitefront/tenant-gateway/internal/tenant"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithFileConfig uses file-based configuration with hot-reload (default).
// The path should point to a config.yaml file that will be watched for
// changes to the tenant host table.
func WithFileConfig(path string) Option {
	return func(g *Gateway) error {
		provider, err := file.NewProvider(path, g.logger)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		g.provider = provider
		return nil
	}
}

// WithConfig uses a fixed, already-loaded configuration. Nothing is watched.
func WithConfig(cfg *config.Config) Option {
	return func(g *Gateway) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		g.static = cfg
		return nil
	}
}

// WithLogger sets the logger. Apply it before WithFileConfig so the provider
// logs through it too.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		g.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) error {
		g.metrics = m
		return nil
	}
}

// WithHTTPClient overrides the client used for content service calls.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) error {
		g.httpClient = client
		return nil
	}
}

// WithTenantIDCache overrides the cache selected by cache.type.
func WithTenantIDCache(c cache.TenantIDCache) Option {
	return func(g *Gateway) error {
		g.idCache = c
		return nil
	}
}

// WithEventPublisher overrides the analytics sink selected by
// analytics.sink.
func WithEventPublisher(p events.Publisher) Option {
	return func(g *Gateway) error {
		g.events = p
		return nil
	}
}

// WithEnvLookup overrides how per-tenant API keys are read from the
// environment.
func WithEnvLookup(lookup tenant.LookupFunc) Option {
	return func(g *Gateway) error {
		if lookup == nil {
			return fmt.Errorf("lookup cannot be nil")
		}
		g.lookupEnv = lookup
		return nil
	}
}
