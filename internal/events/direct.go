package events

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/metrics"
)

// DirectPublisher posts each event to the content API's analytics endpoint.
// This is the default for single-instance deployments.
type DirectPublisher struct {
	client  *backend.Client
	metrics *metrics.Metrics
}

// NewDirectPublisher creates a publisher over the content API client. m may
// be nil.
func NewDirectPublisher(client *backend.Client, m *metrics.Metrics) (*DirectPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &DirectPublisher{client: client, metrics: m}, nil
}

// Publish forwards the event synchronously.
func (p *DirectPublisher) Publish(ctx context.Context, event *Event) error {
	_, err := p.client.Do(ctx, backend.Request{
		Method:   http.MethodPost,
		Path:     backend.PathAnalytics,
		Slug:     event.Slug,
		Body:     event.Body,
		Resource: "analytics",
	})
	record(p.metrics, "upstream", err)
	return err
}

// Close is a no-op for the direct publisher.
func (p *DirectPublisher) Close() error {
	return nil
}

func record(m *metrics.Metrics, sink string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AnalyticsEvents.WithLabelValues(sink, outcome).Inc()
}

// DiscardPublisher accepts and drops events. It backs the "none" sink.
type DiscardPublisher struct {
	metrics *metrics.Metrics
}

// NewDiscardPublisher creates a discarding publisher. m may be nil.
func NewDiscardPublisher(m *metrics.Metrics) *DiscardPublisher {
	return &DiscardPublisher{metrics: m}
}

func (p *DiscardPublisher) Publish(context.Context, *Event) error {
	record(p.metrics, "none", nil)
	return nil
}

func (p *DiscardPublisher) Close() error {
	return nil
}
