package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/sitefront/tenant-gateway/internal/domain"
)

// Content API paths.
const (
	PathTenant        = "/api/public/tenant"
	PathNavigation    = "/api/public/navigation"
	PathCommunities   = "/api/public/communities"
	PathHomes         = "/api/public/homes"
	PathFloorplans    = "/api/public/floorplans"
	PathFavorites     = "/api/public/favorites"
	PathFavoriteItem  = "/api/public/favorites/item"
	PathInquiries     = "/api/public/inquiries"
	PathBOYLLocations = "/api/public/boyl-locations"
	PathLotProcess    = "/api/public/lot-process"
	PathAnalytics     = "/api/public/analytics/events"
)

// Tenant fetches the tenant record for slug.
func (c *Client) Tenant(ctx context.Context, slug string) Result[*domain.Tenant] {
	var t domain.Tenant
	err := c.DoJSON(ctx, Request{Path: PathTenant, Slug: slug, Resource: "tenant"}, &t)
	if err != nil {
		return Fail[*domain.Tenant]("tenant", err)
	}
	return Ok(&t)
}

// Communities lists the tenant's communities.
func (c *Client) Communities(ctx context.Context, slug string) Result[[]domain.Community] {
	return fetchList[domain.Community](ctx, c, PathCommunities, slug, "communities")
}

// Homes lists the tenant's homes.
func (c *Client) Homes(ctx context.Context, slug string) Result[[]domain.Home] {
	return fetchList[domain.Home](ctx, c, PathHomes, slug, "homes")
}

// Floorplans lists the tenant's floorplans.
func (c *Client) Floorplans(ctx context.Context, slug string) Result[[]domain.Floorplan] {
	return fetchList[domain.Floorplan](ctx, c, PathFloorplans, slug, "floorplans")
}

func fetchList[T any](ctx context.Context, c *Client, path, slug, resource string) Result[[]T] {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Slug: slug, Resource: resource})
	if err != nil {
		return Fail[[]T](resource, err)
	}
	items, err := DecodeList[T](resp.Body)
	if err != nil {
		return Fail[[]T](resource, domain.ErrServer("invalid upstream response").WithCause(err))
	}
	return Ok(items)
}

// DecodeList accepts both a bare JSON array and the {"data": [...]} envelope.
func DecodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var envelope domain.ListResponse[T]
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return []T{}, nil
	}
	return envelope.Data, nil
}
