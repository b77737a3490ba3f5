// Package client assembles the per-browser runtime: session, favorites,
// banners, analytics, location and search, built once over the visitor's
// storage areas and shared by everything that renders a page.
package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sitefront/tenant-gateway/internal/analytics"
	"github.com/sitefront/tenant-gateway/internal/banner"
	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/favorites"
	"github.com/sitefront/tenant-gateway/internal/session"
	"github.com/sitefront/tenant-gateway/internal/storage"
	"github.com/sitefront/tenant-gateway/internal/theme"
)

// Config describes the environment of one browser tab.
type Config struct {
	// GatewayURL is the site origin serving /api.
	GatewayURL string
	// AuthURL is the identity service origin. Empty means GatewayURL, whose
	// /api/auth routes pass through.
	AuthURL string
	// Local and Session are the tab's local and session storage.
	Local   storage.Store
	Session storage.Store
	// Events, when set, delivers local storage changes made by other tabs.
	Events storage.Subscriber

	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// Context is the application-scoped dependency bundle.
type Context struct {
	Gateway   *Gateway
	Bus       *session.Bus
	Auth      *session.Bridge
	Favorites *favorites.Service
	Banners   *banner.Store
	Identity  *analytics.IdentityStore
	Tracker   *analytics.Tracker
	Location  *LocationCache
	Search    *Searcher

	beacon  *analytics.HTTPBeacon
	now     func() time.Time
	cleanup []func()
}

// New builds a Context.
func New(cfg Config) (*Context, error) {
	if cfg.GatewayURL == "" {
		return nil, errors.New("gateway url required")
	}
	if cfg.Local == nil || cfg.Session == nil {
		return nil, errors.New("local and session storage required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		}
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = cfg.GatewayURL
	}

	c := &Context{
		Gateway: NewGateway(cfg.GatewayURL, cfg.HTTPClient),
		Bus:     session.NewBus(),
		now:     cfg.Now,
	}
	c.Auth = session.NewBridge(authURL, cfg.Local, c.Bus,
		session.WithHTTPClient(cfg.HTTPClient),
		session.WithLogger(cfg.Logger),
		session.WithClock(cfg.Now))
	c.Favorites = favorites.NewService(favorites.Options{
		API:    favorites.NewHTTPAPI(cfg.GatewayURL, favorites.WithHTTPClient(cfg.HTTPClient)),
		Tokens: c.Auth,
		Logger: cfg.Logger,
	})
	c.Banners = banner.New(cfg.Local, banner.WithClock(cfg.Now))
	c.Identity = analytics.NewIdentityStore(cfg.Local, cfg.Session, analytics.WithClock(cfg.Now))
	c.beacon = analytics.NewHTTPBeacon(cfg.GatewayURL,
		analytics.WithBeaconClient(cfg.HTTPClient),
		analytics.WithBeaconLogger(cfg.Logger))
	c.Tracker = analytics.NewTracker(c.Identity, c.beacon,
		analytics.WithTrackerClock(cfg.Now),
		analytics.WithLogger(cfg.Logger))
	c.Location = NewLocationCache(cfg.Local, cfg.Now)
	c.Search = NewSearcher(c.Gateway.Search)

	// A session change in this or another tab invalidates cached favorites.
	c.cleanup = append(c.cleanup, c.Bus.Subscribe(func(session.Message) {
		c.Favorites.Purge()
	}))
	if cfg.Events != nil {
		c.cleanup = append(c.cleanup, c.Bus.BridgeStorage(cfg.Events))
	}
	return c, nil
}

// Tenant fetches the current tenant, or nil when it is unavailable.
func (c *Context) Tenant(ctx context.Context) *domain.Tenant {
	return c.Gateway.Tenant(ctx).OrElse(nil)
}

// Theme resolves the current tenant's theme, falling back to defaults.
func (c *Context) Theme(ctx context.Context) theme.Theme {
	return theme.Resolve(c.Tenant(ctx))
}

// ActiveBanners returns the tenant's banners that are live and not
// dismissed.
func (c *Context) ActiveBanners(ctx context.Context, t *domain.Tenant) ([]domain.FlyoutBanner, error) {
	dismissed, err := c.Banners.DismissedIDs(ctx)
	if err != nil {
		return nil, err
	}
	return theme.ActiveBanners(t, dismissed, c.now()), nil
}

// Close detaches subscriptions and flushes pending analytics.
func (c *Context) Close(ctx context.Context) error {
	for _, fn := range c.cleanup {
		fn()
	}
	c.cleanup = nil
	return c.beacon.Close(ctx)
}
