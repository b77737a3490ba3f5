package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitefront/tenant-gateway/internal/metrics"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok := m.Get(ctx, "ridgeline-homes")
	assert.False(t, ok)

	m.Set(ctx, "ridgeline-homes", "tnt_1")
	id, ok := m.Get(ctx, "ridgeline-homes")
	assert.True(t, ok)
	assert.Equal(t, "tnt_1", id)

	m.Reset(ctx)
	_, ok = m.Get(ctx, "ridgeline-homes")
	assert.False(t, ok)
}

func TestResolver_CachesAfterFirstFetch(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	fetch := func(ctx context.Context, slug string) (string, error) {
		calls.Add(1)
		return "id-" + slug, nil
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	r := NewResolver(NewMemory(), fetch, m, nil)

	for i := 0; i < 3; i++ {
		id, err := r.TenantID(ctx, "ridgeline-homes")
		require.NoError(t, err)
		assert.Equal(t, "id-ridgeline-homes", id)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TenantCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantCacheMiss))

	r.Reset(ctx)
	_, err := r.TenantID(ctx, "ridgeline-homes")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolver_ErrorsAndEmptyIDsAreNotCached(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	fail := true
	fetch := func(ctx context.Context, slug string) (string, error) {
		calls.Add(1)
		if fail {
			return "", errors.New("upstream down")
		}
		return "", nil
	}
	r := NewResolver(NewMemory(), fetch, nil, nil)

	_, err := r.TenantID(ctx, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")

	fail = false
	id, err := r.TenantID(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, id)

	_, _ = r.TenantID(ctx, "x")
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolver_CollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, slug string) (string, error) {
		calls.Add(1)
		<-release
		return "tnt_1", nil
	}
	r := NewResolver(NewMemory(), fetch, nil, nil)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], _ = r.TenantID(ctx, "ridgeline-homes")
		}()
	}

	// Give the goroutines time to pile up behind the first fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "tnt_1", id)
	}
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

// fakeRedis implements RedisClient over a map.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

// Scan returns one key per page to exercise cursor handling.
func (f *fakeRedis) Scan(_ context.Context, cursor uint64, match string, _ int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	next := cursor + 1
	if len(keys) == 1 {
		next = 0
	}
	return redis.NewScanCmdResult(keys[:1], next, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedis(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.data["unrelated"] = "keep"
	c := NewRedis(fake, "", slog.New(slog.DiscardHandler))

	_, ok := c.Get(ctx, "ridgeline-homes")
	assert.False(t, ok)

	c.Set(ctx, "ridgeline-homes", "tnt_1")
	c.Set(ctx, "cedar-builders", "tnt_2")
	assert.Equal(t, "tnt_1", fake.data[DefaultKeyPrefix+"ridgeline-homes"])

	id, ok := c.Get(ctx, "cedar-builders")
	assert.True(t, ok)
	assert.Equal(t, "tnt_2", id)

	c.Reset(ctx)
	assert.Equal(t, map[string]string{"unrelated": "keep"}, fake.data)
}

func TestRedis_ErrorsDegradeToMiss(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.data[DefaultKeyPrefix+"x"] = "tnt"
	fake.failGet = true
	c := NewRedis(fake, "", slog.New(slog.DiscardHandler))

	_, ok := c.Get(ctx, "x")
	assert.False(t, ok)
}
