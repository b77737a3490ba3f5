// Package favorites caches the signed-in user's favorites and toggles them
// through the gateway.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sitefront/tenant-gateway/internal/domain"
)

// Cache keys.
const (
	KeyAll    = "favorites:all"
	keyPrefix = "favorites:"
)

// Key returns the cache key for a favorites query. An empty type is the
// all-favorites query.
func Key(t domain.FavoriteType) string {
	if t == "" {
		return KeyAll
	}
	return keyPrefix + string(t)
}

// TokenSource yields the current session token, or "" when signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures a Service.
type Options struct {
	API    API
	Tokens TokenSource
	// TTL bounds how long a cached query is served. Zero means 5 minutes.
	TTL    time.Duration
	Logger *slog.Logger
}

// Service answers favorites queries from a cache filled lazily from the API.
type Service struct {
	api    API
	tokens TokenSource
	cache  *expirable.LRU[string, []domain.Favorite]
	logger *slog.Logger
}

// NewService creates a favorites service.
func NewService(opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:    opts.API,
		tokens: opts.Tokens,
		cache:  expirable.NewLRU[string, []domain.Favorite](16, nil, ttl),
		logger: logger,
	}
}

// List returns the favorites of type t, or all favorites when t is empty.
// Without a session it returns an empty list and does not call the API.
func (s *Service) List(ctx context.Context, t domain.FavoriteType) ([]domain.Favorite, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if token == "" {
		return []domain.Favorite{}, nil
	}

	key := Key(t)
	if favs, ok := s.cache.Get(key); ok {
		return favs, nil
	}
	favs, err := s.api.List(ctx, token, t)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	s.cache.Add(key, favs)
	return favs, nil
}

// IsFavorited reports whether the listing is among the user's favorites.
func (s *Service) IsFavorited(ctx context.Context, t domain.FavoriteType, itemID string) (bool, error) {
	favs, err := s.List(ctx, "")
	if err != nil {
		return false, err
	}
	for _, f := range favs {
		if f.Type == t && f.ItemID() == itemID {
			return true, nil
		}
	}
	return false, nil
}

// Toggle adds the listing when it is not a favorite and removes it when it
// is. It reports the new state. Without a session it does nothing.
func (s *Service) Toggle(ctx context.Context, t domain.FavoriteType, itemID string) (bool, error) {
	if !t.Valid() || itemID == "" {
		return false, domain.ErrInvalidRequest("favorite type and item id are required")
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return false, fmt.Errorf("read session: %w", err)
	}
	if token == "" {
		s.logger.InfoContext(ctx, "favorite toggle ignored without session",
			slog.String("type", string(t)), slog.String("item_id", itemID))
		return false, nil
	}

	favorited, err := s.IsFavorited(ctx, t, itemID)
	if err != nil {
		return false, err
	}
	defer s.invalidate(t)

	if favorited {
		if err := s.api.RemoveItem(ctx, token, t, itemID); err != nil && !isNotFound(err) {
			return true, fmt.Errorf("remove favorite: %w", err)
		}
		return false, nil
	}
	if err := s.api.Add(ctx, token, domain.NewFavorite(t, itemID)); err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return true, nil
}

// Purge drops every cached query, e.g. after sign-out.
func (s *Service) Purge() {
	s.cache.Purge()
}

func (s *Service) invalidate(t domain.FavoriteType) {
	s.cache.Remove(Key(t))
	s.cache.Remove(KeyAll)
}
