package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces tenant ids in a shared Redis.
const DefaultKeyPrefix = "site:tenant-id:"

// RedisClient is the subset of the go-redis client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis shares tenant ids across gateway replicas. Redis errors degrade to
// cache misses.
type Redis struct {
	client RedisClient
	prefix string
	logger *slog.Logger
}

// NewRedis wraps a go-redis client.
func NewRedis(client RedisClient, prefix string, logger *slog.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) Get(ctx context.Context, slug string) (string, bool) {
	id, err := r.client.Get(ctx, r.prefix+slug).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WarnContext(ctx, "tenant id cache read failed",
				slog.String("tenant", slug),
				slog.String("error", err.Error()))
		}
		return "", false
	}
	return id, true
}

func (r *Redis) Set(ctx context.Context, slug, id string) {
	if err := r.client.Set(ctx, r.prefix+slug, id, 0).Err(); err != nil {
		r.logger.WarnContext(ctx, "tenant id cache write failed",
			slog.String("tenant", slug),
			slog.String("error", err.Error()))
	}
}

// Reset deletes every key under the prefix.
func (r *Redis) Reset(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			r.logger.WarnContext(ctx, "tenant id cache scan failed", slog.String("error", err.Error()))
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.WarnContext(ctx, "tenant id cache delete failed", slog.String("error", err.Error()))
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
