// Package storage models the browser's key-value storage areas. An Area holds
// the data; a Hub hands out per-tab views of a shared Area and notifies every
// other tab when one of them writes.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Event describes a change made through one tab. It is delivered to every
// other tab of the same Hub, never to the tab that made it.
type Event struct {
	Key      string
	OldValue string
	NewValue string
	// Deleted is set when the key was removed.
	Deleted bool
	// Origin is the id of the tab that made the change.
	Origin string
}

// Subscriber delivers storage events.
type Subscriber interface {
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Memory is an in-process Area. The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Hub shares one Area between tabs.
type Hub struct {
	area Store

	mu        sync.Mutex
	nextSubID int
	listeners map[int]listener
}

type listener struct {
	tab string
	fn  func(Event)
}

// NewHub wraps area.
func NewHub(area Store) *Hub {
	return &Hub{area: area, listeners: make(map[int]listener)}
}

// Tab returns the view of the area for tab id.
func (h *Hub) Tab(id string) *Tab {
	return &Tab{hub: h, id: id}
}

func (h *Hub) subscribe(tab string, fn func(Event)) func() {
	h.mu.Lock()
	id := h.nextSubID
	h.nextSubID++
	h.listeners[id] = listener{tab: tab, fn: fn}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// notify calls the listeners of every tab except the origin. Listeners run on
// the writer's goroutine after the write is visible.
func (h *Hub) notify(e Event) {
	h.mu.Lock()
	targets := make([]func(Event), 0, len(h.listeners))
	for _, l := range h.listeners {
		if l.tab != e.Origin {
			targets = append(targets, l.fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range targets {
		fn(e)
	}
}

// Tab is one tab's view of a Hub's area.
type Tab struct {
	hub *Hub
	id  string
}

// ID returns the tab id.
func (t *Tab) ID() string {
	return t.id
}

func (t *Tab) Get(ctx context.Context, key string) (string, bool, error) {
	return t.hub.area.Get(ctx, key)
}

func (t *Tab) Set(ctx context.Context, key, value string) error {
	old, _, err := t.hub.area.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := t.hub.area.Set(ctx, key, value); err != nil {
		return err
	}
	t.hub.notify(Event{Key: key, OldValue: old, NewValue: value, Origin: t.id})
	return nil
}

func (t *Tab) Delete(ctx context.Context, key string) error {
	old, ok, err := t.hub.area.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := t.hub.area.Delete(ctx, key); err != nil {
		return err
	}
	if ok {
		t.hub.notify(Event{Key: key, OldValue: old, Deleted: true, Origin: t.id})
	}
	return nil
}

// Subscribe registers fn for changes made by other tabs.
func (t *Tab) Subscribe(fn func(Event)) func() {
	return t.hub.subscribe(t.id, fn)
}

// GetJSON decodes the value at key into v. It reports false when the key is
// absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
