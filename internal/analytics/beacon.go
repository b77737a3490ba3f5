package analytics

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PathIngest is the gateway route that accepts events.
const PathIngest = "/api/analytics"

// BeaconOption configures an HTTPBeacon.
type BeaconOption func(*HTTPBeacon)

// WithBeaconClient sets the HTTP client.
func WithBeaconClient(c *http.Client) BeaconOption {
	return func(b *HTTPBeacon) {
		b.http = c
	}
}

// WithQueueSize sets how many events may wait for delivery. Events sent
// while the queue is full are dropped.
func WithQueueSize(n int) BeaconOption {
	return func(b *HTTPBeacon) {
		b.size = n
	}
}

// WithBeaconLogger sets the logger.
func WithBeaconLogger(l *slog.Logger) BeaconOption {
	return func(b *HTTPBeacon) {
		b.logger = l
	}
}

// HTTPBeacon posts events to the gateway from a background goroutine.
type HTTPBeacon struct {
	url    string
	http   *http.Client
	size   int
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan []byte
	done   chan struct{}
}

// NewHTTPBeacon starts a beacon posting to the gateway at baseURL. Close
// stops it.
func NewHTTPBeacon(baseURL string, opts ...BeaconOption) *HTTPBeacon {
	b := &HTTPBeacon{
		url:    strings.TrimSuffix(baseURL, "/") + PathIngest,
		size:   64,
		logger: slog.Default(),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.queue = make(chan []byte, b.size)
	b.done = make(chan struct{})
	go b.run()
	return b
}

// Send queues payload. It never blocks.
func (b *HTTPBeacon) Send(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Debug("analytics beacon closed, event dropped")
		return
	}
	select {
	case b.queue <- payload:
	default:
		b.logger.Debug("analytics queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (b *HTTPBeacon) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *HTTPBeacon) run() {
	defer close(b.done)
	for payload := range b.queue {
		b.post(payload)
	}
}

func (b *HTTPBeacon) post(payload []byte) {
	req, err := http.NewRequest(http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		b.logger.Debug("analytics request failed", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.Debug("analytics delivery failed", slog.String("error", err.Error()))
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		b.logger.Debug("analytics event rejected", slog.Int("status", resp.StatusCode))
	}
}
