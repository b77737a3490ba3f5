package favorites

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/domain"
)

// API is the favorites surface of the gateway.
type API interface {
	List(ctx context.Context, token string, t domain.FavoriteType) ([]domain.Favorite, error)
	Add(ctx context.Context, token string, f domain.Favorite) error
	RemoveItem(ctx context.Context, token string, t domain.FavoriteType, itemID string) error
}

// HTTPAPI talks to the gateway's /api/favorites routes.
type HTTPAPI struct {
	baseURL string
	http    *http.Client
}

// APIOption configures an HTTPAPI.
type APIOption func(*HTTPAPI)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *HTTPAPI) {
		a.http = c
	}
}

// NewHTTPAPI creates a client for the gateway at baseURL.
func NewHTTPAPI(baseURL string, opts ...APIOption) *HTTPAPI {
	a := &HTTPAPI{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const pathFavorites = "/api/favorites"

func (a *HTTPAPI) List(ctx context.Context, token string, t domain.FavoriteType) ([]domain.Favorite, error) {
	q := url.Values{}
	if t != "" {
		q.Set("type", string(t))
	}
	body, err := a.do(ctx, http.MethodGet, pathFavorites, q, token, nil)
	if err != nil {
		return nil, err
	}
	favs, err := backend.DecodeList[domain.Favorite](body)
	if err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	return favs, nil
}

func (a *HTTPAPI) Add(ctx context.Context, token string, f domain.Favorite) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode favorite: %w", err)
	}
	_, err = a.do(ctx, http.MethodPost, pathFavorites, nil, token, raw)
	return err
}

func (a *HTTPAPI) RemoveItem(ctx context.Context, token string, t domain.FavoriteType, itemID string) error {
	q := url.Values{"type": {string(t)}, "itemId": {itemID}}
	_, err := a.do(ctx, http.MethodDelete, pathFavorites+"/item", q, token, nil)
	return err
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, q url.Values, token string, body []byte) ([]byte, error) {
	target := a.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, domain.ErrUpstreamUnreachable(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, domain.ErrUpstreamUnreachable(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.ErrUpstreamRejected(resp.StatusCode, backend.ExtractMessage(raw))
	}
	return raw, nil
}

// isNotFound reports whether err is an upstream 404.
func isNotFound(err error) bool {
	var apiErr *domain.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode() == http.StatusNotFound
}
