package banner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitefront/tenant-gateway/internal/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*Store, *storage.Memory, *clock) {
	mem := storage.NewMemory()
	c := &clock{t: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}
	return New(mem, WithClock(c.now)), mem, c
}

func TestDismiss_WithinWindowPersists(t *testing.T) {
	ctx := context.Background()
	s, _, c := newTestStore()

	require.NoError(t, s.Dismiss(ctx, "spring-promo"))
	c.advance(4 * time.Minute)

	for i := 0; i < 2; i++ {
		ids, err := s.DismissedIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"spring-promo"}, ids)
	}
	dismissed, err := s.IsDismissed(ctx, "spring-promo")
	require.NoError(t, err)
	assert.True(t, dismissed)
}

func TestDismissed_PrunesExpiredOnRead(t *testing.T) {
	ctx := context.Background()
	s, mem, c := newTestStore()

	require.NoError(t, s.Dismiss(ctx, "old"))
	c.advance(3 * time.Minute)
	require.NoError(t, s.Dismiss(ctx, "new"))
	c.advance(2*time.Minute + time.Second)

	live, err := s.Dismissed(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "new", live[0].BannerID)

	var stored []Dismissal
	ok, err := storage.GetJSON(ctx, mem, Key, &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, stored, 1, "expired entry is pruned from storage")

	c.advance(5 * time.Minute)
	live, err = s.Dismissed(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
	_, ok, _ = mem.Get(ctx, Key)
	assert.False(t, ok, "empty list removes the key")
}

func TestDismiss_ReplacesEarlierEntry(t *testing.T) {
	ctx := context.Background()
	s, _, c := newTestStore()

	require.NoError(t, s.Dismiss(ctx, "promo"))
	c.advance(4 * time.Minute)
	require.NoError(t, s.Dismiss(ctx, "promo"))
	c.advance(4 * time.Minute)

	live, err := s.Dismissed(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.True(t, live[0].DismissedAt.Equal(c.t.Add(-4*time.Minute)), "dismissal time refreshed")
}

func TestDismissed_CorruptListIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore()
	require.NoError(t, mem.Set(ctx, Key, "not json"))

	live, err := s.Dismissed(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
	_, ok, _ := mem.Get(ctx, Key)
	assert.False(t, ok)
}
