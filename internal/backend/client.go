// Package backend is the HTTP client for the headless content API. Every call
// carries the tenant slug and the tenant's API key.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/metrics"
	"github.com/sitefront/tenant-gateway/internal/tenant"
)

const (
	defaultTimeout = 15 * time.Second
	// maxBodyBytes caps upstream bodies read into memory.
	maxBodyBytes = 8 << 20
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each upstream call. Zero disables the bound, leaving only
// the caller's context.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDefaultSlug sets the slug used when a request carries none.
func WithDefaultSlug(slug string) ClientOption {
	return WithDefaultSlugFunc(func() string { return slug })
}

// WithDefaultSlugFunc reads the fallback slug on every request.
func WithDefaultSlugFunc(fn func() string) ClientOption {
	return func(c *Client) {
		c.defaultSlug = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records upstream latency.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client talks to the content API's /api/public surface.
type Client struct {
	baseURL     string
	creds       *tenant.Credentials
	defaultSlug func() string
	timeout     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a content API client rooted at baseURL.
func NewClient(baseURL string, creds *tenant.Credentials, opts ...ClientOption) *Client {
	if creds == nil {
		creds = tenant.NewCredentials("", nil)
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		timeout: defaultTimeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one upstream call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded unless it is already a []byte.
	Body any
	// Slug selects the tenant; empty means the client default.
	Slug string
	// Authorization is forwarded verbatim when set.
	Authorization string
	// Resource labels the call in metrics and logs.
	Resource string
}

// Response is a successful upstream reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do performs the call. Transport failures return an upstream_unreachable
// APIError; non-2xx replies return upstream_rejected with the upstream status
// and its best-effort error message.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, domain.ErrServer("failed to build upstream request").WithCause(err)
	}

	resource := req.Resource
	if resource == "" {
		resource = req.Path
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(resource, "unreachable", start)
		c.logger.WarnContext(ctx, "upstream unreachable",
			slog.String("resource", resource),
			slog.String("error", err.Error()))
		return nil, domain.ErrUpstreamUnreachable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(resource, "unreachable", start)
		return nil, domain.ErrUpstreamUnreachable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(resource, "rejected", start)
		c.logger.DebugContext(ctx, "upstream rejected request",
			slog.String("resource", resource),
			slog.Int("status", resp.StatusCode))
		return nil, domain.ErrUpstreamRejected(resp.StatusCode, ExtractMessage(body))
	}

	c.observe(resource, "ok", start)
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// DoJSON performs the call and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return domain.ErrServer("invalid upstream response").WithCause(err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" && c.defaultSlug != nil {
		slug = c.defaultSlug()
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if key := c.creds.APIKey(slug); key != "" {
		httpReq.Header.Set(tenant.HeaderAPIKey, key)
	}
	if slug != "" {
		httpReq.Header.Set(tenant.HeaderSlug, slug)
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}
	return httpReq, nil
}

func (c *Client) observe(resource, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamLatency.WithLabelValues(resource, outcome).Observe(time.Since(start).Seconds())
}

// ExtractMessage pulls a human-readable message out of an upstream error body:
// a string "error" or "message" field, a nested error.message, or the raw text.
func ExtractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		for _, key := range []string{"error", "message"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}
	return string(trimmed)
}
