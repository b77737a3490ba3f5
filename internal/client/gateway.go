package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/search"
)

// Gateway reads the public gateway routes.
type Gateway struct {
	baseURL string
	http    *http.Client
}

// NewGateway creates a client for the gateway at baseURL.
func NewGateway(baseURL string, httpClient *http.Client) *Gateway {
	return &Gateway{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// Tenant fetches the tenant of the gateway's host. Callers degrade to
// defaults on failure.
func (g *Gateway) Tenant(ctx context.Context) backend.Result[*domain.Tenant] {
	var t domain.Tenant
	if err := g.getJSON(ctx, "/api/tenant", nil, &t); err != nil {
		return backend.Fail[*domain.Tenant]("tenant", err)
	}
	return backend.Ok(&t)
}

// Search runs a search query.
func (g *Gateway) Search(ctx context.Context, q string) (search.Response, error) {
	var resp search.Response
	if err := g.getJSON(ctx, "/api/search", url.Values{"q": {q}}, &resp); err != nil {
		return search.Response{}, err
	}
	return resp, nil
}

func (g *Gateway) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	target := g.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return domain.ErrUpstreamUnreachable(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.ErrUpstreamUnreachable(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ErrUpstreamRejected(resp.StatusCode, backend.ExtractMessage(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.ErrServer("invalid gateway response").WithCause(err)
	}
	return nil
}
