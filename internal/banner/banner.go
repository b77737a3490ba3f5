// Package banner remembers which flyout banners a visitor dismissed. A
// dismissal lasts Window; after that the banner may show again.
package banner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sitefront/tenant-gateway/internal/storage"
)

const (
	// Key is the local storage key holding the dismissal list.
	Key = "dismissed_banners"
	// Window is how long a dismissal suppresses a banner.
	Window = 5 * time.Minute
)

// Dismissal records when a banner was closed.
type Dismissal struct {
	BannerID    string    `json:"bannerId"`
	DismissedAt time.Time `json:"dismissedAt"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store keeps dismissals in local storage.
type Store struct {
	store storage.Store
	now   func() time.Time
}

// New creates a dismissal store over s.
func New(s storage.Store, opts ...Option) *Store {
	b := &Store{store: s, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dismissed returns the live dismissals. Expired entries are dropped from
// storage as a side effect. An unreadable list is discarded.
func (s *Store) Dismissed(ctx context.Context) ([]Dismissal, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	live := all[:0:0]
	for _, d := range all {
		if now.Sub(d.DismissedAt) < Window {
			live = append(live, d)
		}
	}
	if len(live) != len(all) {
		if err := s.save(ctx, live); err != nil {
			return nil, err
		}
	}
	return live, nil
}

// DismissedIDs returns the ids of the live dismissals.
func (s *Store) DismissedIDs(ctx context.Context) ([]string, error) {
	live, err := s.Dismissed(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(live))
	for i, d := range live {
		ids[i] = d.BannerID
	}
	return ids, nil
}

// IsDismissed reports whether id has a live dismissal.
func (s *Store) IsDismissed(ctx context.Context, id string) (bool, error) {
	live, err := s.Dismissed(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range live {
		if d.BannerID == id {
			return true, nil
		}
	}
	return false, nil
}

// Dismiss records that id was closed now, replacing any earlier dismissal of
// the same banner.
func (s *Store) Dismiss(ctx context.Context, id string) error {
	live, err := s.Dismissed(ctx)
	if err != nil {
		return err
	}
	next := make([]Dismissal, 0, len(live)+1)
	for _, d := range live {
		if d.BannerID != id {
			next = append(next, d)
		}
	}
	next = append(next, Dismissal{BannerID: id, DismissedAt: s.now()})
	return s.save(ctx, next)
}

func (s *Store) load(ctx context.Context) ([]Dismissal, error) {
	raw, ok, err := s.store.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("read dismissed banners: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var list []Dismissal
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		if err := s.store.Delete(ctx, Key); err != nil {
			return nil, fmt.Errorf("reset dismissed banners: %w", err)
		}
		return nil, nil
	}
	return list, nil
}

func (s *Store) save(ctx context.Context, list []Dismissal) error {
	if len(list) == 0 {
		return s.store.Delete(ctx, Key)
	}
	return storage.SetJSON(ctx, s.store, Key, list)
}
