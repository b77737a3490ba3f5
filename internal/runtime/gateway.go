// Package runtime provides the Gateway struct and lifecycle management for
// the tenant-aware site gateway.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sitefront/tenant-gateway/internal/adapters/config/file"
	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/cache"
	"github.com/sitefront/tenant-gateway/internal/events"
	"github.com/sitefront/tenant-gateway/internal/metrics"
	"github.com/sitefront/tenant-gateway/internal/pkg/config"
	"github.com/sitefront/tenant-gateway/internal/proxy"
	"github.com/sitefront/tenant-gateway/internal/server"
	"github.com/sitefront/tenant-gateway/internal/tenant"
)

// Gateway is the main entry point for running the site gateway.
// It owns configuration, the upstream clients, the tenant-id cache, the
// analytics sink and the HTTP server lifecycle. Gateway can be embedded in
// larger applications or run standalone.
type Gateway struct {
	// Dependencies (injected via options)
	provider   *file.Provider
	static     *config.Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
	idCache    cache.TenantIDCache
	events     events.Publisher
	lookupEnv  tenant.LookupFunc

	// Built by Start
	cfg      *config.Config
	resolver *tenant.Resolver
	backend  *backend.Client
	server   *server.Server
	closers  []func() error

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	started bool
}

// New creates a new Gateway with the given options. A configuration source
// is required: WithFileConfig or WithConfig.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger:    slog.Default(),
		lookupEnv: os.LookupEnv,
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.provider == nil && gw.static == nil {
		return nil, errors.New("config source required (use WithFileConfig or WithConfig)")
	}
	if gw.metrics == nil {
		gw.metrics = metrics.New()
	}

	return gw, nil
}

// Start loads the configuration, builds the /api handlers and starts
// serving. It also starts watching the config file for host table changes.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return errors.New("gateway already started")
	}
	g.ctx, g.cancel = context.WithCancel(ctx)

	cfg, err := g.loadConfig(g.ctx)
	if err != nil {
		return err
	}
	if err := g.build(cfg); err != nil {
		g.closeAll()
		return err
	}

	srv := g.server
	go func() {
		if err := srv.Start(); err != nil {
			g.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	if g.provider != nil {
		if err := g.provider.Watch(g.ctx, g.reload); err != nil {
			g.logger.Warn("config watch unavailable", slog.String("error", err.Error()))
		}
	}

	g.started = true
	g.logger.Info("gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.Int("host_rules", len(cfg.Tenants.Hosts)),
		slog.String("cache", cfg.Cache.Type),
		slog.String("analytics_sink", cfg.Analytics.Sink))

	return nil
}

func (g *Gateway) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg := g.static
	if g.provider != nil {
		loaded, err := g.provider.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// build wires every component from cfg.
func (g *Gateway) build(cfg *config.Config) error {
	g.cfg = cfg
	g.resolver = tenant.NewResolver(cfg.Tenants.Hosts, cfg.Tenants.DefaultSlug)

	clientOpts := []backend.ClientOption{
		backend.WithTimeout(cfg.Server.UpstreamTimeout),
		backend.WithDefaultSlugFunc(g.resolver.DefaultSlug),
		backend.WithLogger(g.logger),
		backend.WithMetrics(g.metrics),
	}
	if g.httpClient != nil {
		clientOpts = append(clientOpts, backend.WithHTTPClient(g.httpClient))
	}
	g.backend = backend.NewClient(cfg.Backend.BaseURL,
		tenant.NewCredentials(cfg.Backend.APIKey, g.lookupEnv), clientOpts...)

	idCache := g.idCache
	if idCache == nil {
		c, closer := newTenantIDCache(cfg.Cache, g.logger)
		idCache = c
		if closer != nil {
			g.closers = append(g.closers, closer)
		}
	}

	publisher := g.events
	if publisher == nil {
		p, err := newPublisher(cfg.Analytics, g.backend, g.metrics)
		if err != nil {
			return fmt.Errorf("create analytics sink: %w", err)
		}
		publisher = p
	}
	g.closers = append(g.closers, publisher.Close)

	var limiter *server.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = server.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, g.metrics.RateLimited.Inc)
		if err := limiter.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
			return fmt.Errorf("ratelimit.trusted_proxies: %w", err)
		}
	}

	api, err := proxy.New(proxy.Options{
		Backend:     g.backend,
		AuthURL:     cfg.Backend.AuthURL,
		AuthTimeout: cfg.Server.UpstreamTimeout,
		TenantIDs:   cache.NewResolver(idCache, proxy.TenantIDFetcher(g.backend), g.metrics, g.logger),
		Events:      publisher,
		Limiter:     limiter,
		Resolver:    g.resolver,
		DefaultSlug: cfg.Tenants.DefaultSlug,
		Logger:      g.logger,
		Metrics:     g.metrics,
	})
	if err != nil {
		return fmt.Errorf("create api handlers: %w", err)
	}

	g.server = server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		Resolver:       g.resolver,
		Logger:         g.logger,
		ServiceName:    cfg.Telemetry.ServiceName,
	})
	g.server.Router.Handle("/metrics", g.metrics.Handler())
	g.server.Router.Mount("/api", api.Routes())

	return nil
}

// Handler returns the gateway's root handler. It is nil before Start.
func (g *Gateway) Handler() http.Handler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.server == nil {
		return nil
	}
	return g.server.Router
}

// Resolver returns the live tenant resolver. It is nil before Start.
func (g *Gateway) Resolver() *tenant.Resolver {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.resolver
}

// reload applies a changed configuration. Only the host table and default
// slug take effect without a restart; the proxy and backend client read the
// default slug from the resolver on each request.
func (g *Gateway) reload(cfg *config.Config) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolver == nil {
		return
	}
	g.resolver.Update(cfg.Tenants)
	g.metrics.HostTableReloads.Inc()

	if cfg.Server.Port != g.cfg.Server.Port || cfg.Backend.BaseURL != g.cfg.Backend.BaseURL ||
		cfg.Cache.Type != g.cfg.Cache.Type || cfg.Analytics.Sink != g.cfg.Analytics.Sink {
		g.logger.Warn("config change requires restart; only tenant hosts were reloaded")
	}
	g.logger.Info("tenant host table reloaded",
		slog.Int("host_rules", len(cfg.Tenants.Hosts)),
		slog.String("default_slug", cfg.Tenants.DefaultSlug))
}

// Shutdown gracefully stops the gateway.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("shutting down gateway")

	if g.cancel != nil {
		g.cancel()
	}

	var errs []error
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if g.provider != nil {
		if err := g.provider.Close(); err != nil {
			g.logger.Error("failed to close config", slog.String("error", err.Error()))
		}
	}
	errs = append(errs, g.closeAll())

	g.started = false
	g.logger.Info("gateway shutdown complete")
	return errors.Join(errs...)
}

func (g *Gateway) closeAll() error {
	var errs []error
	for _, closeFn := range g.closers {
		if err := closeFn(); err != nil {
			g.logger.Error("failed to close resource", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	g.closers = nil
	return errors.Join(errs...)
}

// shutdownTimeout bounds Shutdown when called from Run.
const shutdownTimeout = 10 * time.Second

// Run starts the gateway and blocks until ctx is cancelled, then shuts it
// down.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.Shutdown(shutdownCtx)
}
