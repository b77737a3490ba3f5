package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sitefront/tenant-gateway/internal/storage"
)

// KeyLocation is the local storage key of the cached location.
const KeyLocation = "user_location"

// LocationTTL is how long a cached location is trusted.
const LocationTTL = 24 * time.Hour

// Location is the visitor's approximate position.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	CachedAt  time.Time `json:"timestamp"`
}

// Locator determines the visitor's location, e.g. from the browser or an
// IP lookup.
type Locator func(ctx context.Context) (Location, error)

// LocationCache keeps the last known location in local storage.
type LocationCache struct {
	store storage.Store
	now   func() time.Time
}

// NewLocationCache creates a cache over store.
func NewLocationCache(store storage.Store, now func() time.Time) *LocationCache {
	if now == nil {
		now = time.Now
	}
	return &LocationCache{store: store, now: now}
}

// Get returns the cached location if it is younger than LocationTTL. Stale
// or unreadable entries are removed.
func (c *LocationCache) Get(ctx context.Context) (Location, bool, error) {
	var loc Location
	ok, err := storage.GetJSON(ctx, c.store, KeyLocation, &loc)
	if err == nil && !ok {
		return Location{}, false, nil
	}
	if err != nil || c.now().Sub(loc.CachedAt) >= LocationTTL {
		if derr := c.store.Delete(ctx, KeyLocation); derr != nil {
			return Location{}, false, fmt.Errorf("drop cached location: %w", derr)
		}
		return Location{}, false, nil
	}
	return loc, true, nil
}

// Set caches loc as of now.
func (c *LocationCache) Set(ctx context.Context, loc Location) error {
	loc.CachedAt = c.now()
	return storage.SetJSON(ctx, c.store, KeyLocation, loc)
}

// Resolve returns the cached location or asks locate and caches its answer.
func (c *LocationCache) Resolve(ctx context.Context, locate Locator) (Location, error) {
	if loc, ok, err := c.Get(ctx); err != nil || ok {
		return loc, err
	}
	loc, err := locate(ctx)
	if err != nil {
		return Location{}, fmt.Errorf("locate: %w", err)
	}
	if err := c.Set(ctx, loc); err != nil {
		return Location{}, fmt.Errorf("cache location: %w", err)
	}
	loc.CachedAt = c.now()
	return loc, nil
}
