package runtime

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/cache"
	"github.com/sitefront/tenant-gateway/internal/events"
	"github.com/sitefront/tenant-gateway/internal/metrics"
	"github.com/sitefront/tenant-gateway/internal/pkg/config"
)

// newTenantIDCache builds the cache named by cfg.Type. The returned closer is
// nil when nothing needs releasing.
func newTenantIDCache(cfg config.CacheConfig, logger *slog.Logger) (cache.TenantIDCache, func() error) {
	if cfg.Type != "redis" {
		return cache.NewMemory(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("using redis tenant-id cache", slog.String("addr", cfg.Redis.Addr))
	return cache.NewRedis(client, cfg.Redis.KeyPrefix, logger), client.Close
}

// newPublisher builds the analytics sink named by cfg.Sink.
func newPublisher(cfg config.AnalyticsConfig, client *backend.Client, m *metrics.Metrics) (events.Publisher, error) {
	switch cfg.Sink {
	case "", "upstream":
		return events.NewDirectPublisher(client, m)
	case "kafka":
		return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), m)
	case "none":
		return events.NewDiscardPublisher(m), nil
	default:
		return nil, fmt.Errorf("unknown analytics sink %q", cfg.Sink)
	}
}
