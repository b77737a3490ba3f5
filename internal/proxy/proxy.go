// Package proxy serves the gateway's /api surface. Each route forwards to the
// content API or the identity service with the caller's tenant slug and the
// tenant's API key attached.
package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/cache"
	"github.com/sitefront/tenant-gateway/internal/codec"
	"github.com/sitefront/tenant-gateway/internal/events"
	"github.com/sitefront/tenant-gateway/internal/metrics"
	"github.com/sitefront/tenant-gateway/internal/search"
	"github.com/sitefront/tenant-gateway/internal/server"
	"github.com/sitefront/tenant-gateway/internal/tenant"
)

// maxRequestBytes bounds JSON bodies accepted from browsers.
const maxRequestBytes = 64 << 10

// Options configures the handler set.
type Options struct {
	Backend *backend.Client
	// AuthURL is the identity service root. /api/auth/* is forwarded to it.
	AuthURL string
	// AuthClient overrides the client used for the auth passthrough. Redirect
	// following is always disabled on it.
	AuthClient *http.Client
	// AuthTimeout bounds auth passthrough calls when AuthClient is nil.
	AuthTimeout time.Duration
	Search      *search.Service
	TenantIDs   *cache.Resolver
	Events      events.Publisher
	// Limiter guards the inquiry and analytics ingestion routes.
	Limiter *server.RateLimiter
	// Resolver, when set, supplies the live default slug.
	Resolver    *tenant.Resolver
	DefaultSlug string
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Handler holds the dependencies shared by all /api routes.
type Handler struct {
	backend     *backend.Client
	authURL     string
	authClient  *http.Client
	search      *search.Service
	tenantIDs   *cache.Resolver
	events      events.Publisher
	limiter     *server.RateLimiter
	resolver    *tenant.Resolver
	defaultSlug string
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// New validates opts and builds the handler set. Search and the tenant-id
// resolver default to implementations over Backend.
func New(opts Options) (*Handler, error) {
	if opts.Backend == nil {
		return nil, errors.New("backend client required")
	}
	if opts.Events == nil {
		return nil, errors.New("analytics publisher required")
	}

	h := &Handler{
		backend:     opts.Backend,
		authURL:     strings.TrimSuffix(opts.AuthURL, "/"),
		search:      opts.Search,
		tenantIDs:   opts.TenantIDs,
		events:      opts.Events,
		limiter:     opts.Limiter,
		resolver:    opts.Resolver,
		defaultSlug: opts.DefaultSlug,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.search == nil {
		h.search = search.NewService(opts.Backend, h.logger, opts.Metrics)
	}
	if h.tenantIDs == nil {
		h.tenantIDs = cache.NewResolver(cache.NewMemory(), TenantIDFetcher(opts.Backend), opts.Metrics, h.logger)
	}
	h.authClient = newAuthClient(opts.AuthClient, opts.AuthTimeout)
	return h, nil
}

func newAuthClient(base *http.Client, timeout time.Duration) *http.Client {
	var c http.Client
	if base != nil {
		c = *base
	} else {
		c = http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		}
	}
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
}

// Routes returns the /api router. Mount it at /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/tenant", h.relay(backend.PathTenant, "tenant"))
	r.Get("/navigation", h.relay(backend.PathNavigation, "navigation"))
	r.Get("/boyl-locations", h.relay(backend.PathBOYLLocations, "boyl-locations"))
	r.Get("/lot-process", h.relay(backend.PathLotProcess, "lot-process"))
	r.Get("/search", h.handleSearch)

	r.Group(func(r chi.Router) {
		r.Use(server.RequireAuthorization)
		r.Get("/favorites", h.listFavorites)
		r.Post("/favorites", h.addFavorite)
		r.Delete("/favorites/item", h.removeFavoriteItem)
		r.Delete("/favorites/{id}", h.removeFavorite)
	})

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Post("/inquiries", h.createInquiry)
		r.Post("/analytics", h.ingestAnalytics)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(authCORS())
		r.HandleFunc("/*", h.authPassthrough)
	})

	return r
}

// slug returns the tenant resolved by the edge middleware, else the default.
// The inbound x-tenant-slug header is never trusted.
func (h *Handler) slug(r *http.Request) string {
	if s, ok := tenant.SlugFromContext(r.Context()); ok && s != "" {
		return s
	}
	if h.resolver != nil {
		return h.resolver.DefaultSlug()
	}
	return h.defaultSlug
}

// relay forwards a GET with the caller's query string and copies the upstream
// body and status back.
func (h *Handler) relay(path, resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.backend.Do(r.Context(), backend.Request{
			Method:   http.MethodGet,
			Path:     path,
			Query:    r.URL.Query(),
			Slug:     h.slug(r),
			Resource: resource,
		})
		h.respond(w, r, resource, resp, err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, resource string, resp *backend.Response, err error) {
	if err != nil {
		h.fail(w, r, resource, err)
		return
	}
	h.count(resource, resp.StatusCode)
	server.AddLogField(r.Context(), "upstream_status", strconv.Itoa(resp.StatusCode))

	if len(resp.Body) == 0 {
		w.WriteHeader(resp.StatusCode)
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, resource string, err error) {
	h.count(resource, codec.ToCanonicalError(err).HTTPStatusCode())
	server.AddError(r.Context(), err)
	codec.WriteError(w, err)
}

func (h *Handler) count(resource string, status int) {
	if h.metrics == nil {
		return
	}
	h.metrics.ProxyRequests.WithLabelValues(resource, strconv.Itoa(status)).Inc()
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	resp := h.search.Search(r.Context(), h.slug(r), r.URL.Query().Get("q"))
	h.count("search", http.StatusOK)
	codec.WriteJSON(w, http.StatusOK, resp)
}

// TenantIDFetcher resolves tenant ids through the content API's tenant route.
func TenantIDFetcher(client *backend.Client) cache.FetchFunc {
	return func(ctx context.Context, slug string) (string, error) {
		t, err := client.Tenant(ctx, slug).Get()
		if err != nil {
			return "", err
		}
		return t.ID, nil
	}
}
