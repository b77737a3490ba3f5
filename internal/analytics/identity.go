// Package analytics tracks page views for the visitor of one browser: a
// durable visitor id, a sliding session id, and per-page engagement that is
// flushed without blocking when the page goes away.
package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitefront/tenant-gateway/internal/storage"
)

// Storage keys.
const (
	KeyVisitor = "analytics_visitor_id"
	KeySession = "analytics_session"
)

// SessionTimeout is the idle gap after which a new session starts.
const SessionTimeout = 30 * time.Minute

type sessionRecord struct {
	ID           string    `json:"id"`
	LastActivity time.Time `json:"lastActivity"`
}

// IdentityOption configures an IdentityStore.
type IdentityOption func(*IdentityStore)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) IdentityOption {
	return func(s *IdentityStore) {
		s.now = now
	}
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(gen func() string) IdentityOption {
	return func(s *IdentityStore) {
		s.newID = gen
	}
}

// IdentityStore hands out visitor and session ids. The visitor id lives in
// local storage and never changes once written; the session id lives in
// session storage and expires after SessionTimeout without a read.
type IdentityStore struct {
	local   storage.Store
	session storage.Store
	now     func() time.Time
	newID   func() string

	mu sync.Mutex
}

// NewIdentityStore creates an identity store over the two storage areas.
func NewIdentityStore(local, session storage.Store, opts ...IdentityOption) *IdentityStore {
	s := &IdentityStore{
		local:   local,
		session: session,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VisitorID returns the durable visitor id, creating it on first use.
func (s *IdentityStore) VisitorID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.local.Get(ctx, KeyVisitor)
	if err != nil {
		return "", fmt.Errorf("read visitor id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}
	id = s.newID()
	if err := s.local.Set(ctx, KeyVisitor, id); err != nil {
		return "", fmt.Errorf("save visitor id: %w", err)
	}
	return id, nil
}

// SessionID returns the current session id. Every call counts as activity
// and pushes the expiry out; a call after SessionTimeout of inactivity starts
// a new session.
func (s *IdentityStore) SessionID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var rec sessionRecord
	ok, err := storage.GetJSON(ctx, s.session, KeySession, &rec)
	if err != nil {
		// An unreadable record is replaced by a new session.
		ok = false
	}
	if !ok || rec.ID == "" || now.Sub(rec.LastActivity) > SessionTimeout {
		rec = sessionRecord{ID: s.newID()}
	}
	rec.LastActivity = now
	if err := storage.SetJSON(ctx, s.session, KeySession, rec); err != nil {
		return "", fmt.Errorf("save session id: %w", err)
	}
	return rec.ID, nil
}
