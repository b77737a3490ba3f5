// Package metrics holds the Prometheus collectors exported by the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "site_gateway"

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	ProxyRequests    *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	TenantCacheHits  prometheus.Counter
	TenantCacheMiss  prometheus.Counter
	SearchFailures   *prometheus.CounterVec
	AnalyticsEvents  *prometheus.CounterVec
	RateLimited      prometheus.Counter
	HostTableReloads prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the gateway collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg. Each call needs its own
// registerer; registering twice on the same one panics.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProxyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Proxied API requests by resource and response status.",
		}, []string{"resource", "status"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the content API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "outcome"}), // outcome: ok, rejected, unreachable
		TenantCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant_cache",
			Name:      "hits_total",
			Help:      "Tenant id cache hits.",
		}),
		TenantCacheMiss: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant_cache",
			Name:      "misses_total",
			Help:      "Tenant id cache misses.",
		}),
		SearchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "source_failures_total",
			Help:      "Search source fetches that failed and were degraded to empty.",
		}, []string{"source"}),
		AnalyticsEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Analytics events forwarded by sink and outcome.",
		}, []string{"sink", "outcome"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		HostTableReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "host_table_reloads_total",
			Help:      "Successful reloads of the tenant host table.",
		}),
		gatherer: gatherer,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
