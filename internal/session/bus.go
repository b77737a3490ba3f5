package session

import (
	"encoding/json"
	"sync"

	"github.com/sitefront/tenant-gateway/internal/storage"
)

// Message is a session change notification.
type Message interface {
	sessionMessage()
}

// SessionUpdated announces a new or refreshed session.
type SessionUpdated struct {
	Blob Blob
}

// SessionCleared announces that no session is present any more.
type SessionCleared struct {
	// Reason is "signed_out", "expired", or "storage" for a change seen from
	// another tab.
	Reason string
}

func (SessionUpdated) sessionMessage() {}
func (SessionCleared) sessionMessage() {}

// Bus fans session messages out to the components of one tab. Publishing
// reaches this tab's subscribers immediately; other tabs learn of the change
// through storage events, see BridgeStorage.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Message)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Message))}
}

// Subscribe registers fn and returns its cancel function.
func (b *Bus) Subscribe(fn func(Message)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers m to every subscriber on the caller's goroutine.
func (b *Bus) Publish(m Message) {
	b.mu.Lock()
	fns := make([]func(Message), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}

// BridgeStorage republishes session key changes made by other tabs.
// Unreadable values are ignored.
func (b *Bus) BridgeStorage(sub storage.Subscriber) func() {
	return sub.Subscribe(func(e storage.Event) {
		if e.Key != KeyBlob {
			return
		}
		if e.Deleted || e.NewValue == "" {
			b.Publish(SessionCleared{Reason: "storage"})
			return
		}
		var blob Blob
		if err := json.Unmarshal([]byte(e.NewValue), &blob); err != nil {
			return
		}
		b.Publish(SessionUpdated{Blob: blob})
	})
}
