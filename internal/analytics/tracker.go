package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"
)

// Event types.
const (
	EventPageView = "page_view"
	EventPageExit = "page_exit"
)

// Beacon delivers an encoded event. Send must return without waiting for
// delivery.
type Beacon interface {
	Send(payload []byte)
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerClock overrides time.Now.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

// Tracker stamps events with visitor and session ids and hands them to a
// Beacon. Failures are logged and otherwise ignored.
type Tracker struct {
	ids    *IdentityStore
	beacon Beacon
	now    func() time.Time
	logger *slog.Logger
}

// NewTracker creates a tracker.
func NewTracker(ids *IdentityStore, beacon Beacon, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		ids:    ids,
		beacon: beacon,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track sends one event with the given fields.
func (t *Tracker) Track(ctx context.Context, eventType string, fields map[string]any) {
	payload := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		payload[k] = v
	}
	payload["eventType"] = eventType
	payload["timestamp"] = t.now().UTC().Format(time.RFC3339Nano)

	if id, err := t.ids.VisitorID(ctx); err == nil {
		payload["visitorId"] = id
	} else {
		t.logger.DebugContext(ctx, "analytics visitor id unavailable", slog.String("error", err.Error()))
	}
	if id, err := t.ids.SessionID(ctx); err == nil {
		payload["sessionId"] = id
	} else {
		t.logger.DebugContext(ctx, "analytics session id unavailable", slog.String("error", err.Error()))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.logger.DebugContext(ctx, "analytics event dropped", slog.String("event_type", eventType), slog.String("error", err.Error()))
		return
	}
	t.beacon.Send(raw)
}

// Page describes the page being viewed.
type Page struct {
	Path      string
	Query     url.Values
	Title     string
	Referrer  string
	UserAgent string
}

// PageView tracks engagement with one page from Start to Unload.
type PageView struct {
	tracker *Tracker
	page    Page
	started time.Time

	mu        sync.Mutex
	maxScroll float64
	done      bool
}

// Start emits a page_view event and begins tracking the page.
func (t *Tracker) Start(ctx context.Context, page Page) *PageView {
	client := ParseUserAgent(page.UserAgent)
	fields := map[string]any{
		"path":       page.Path,
		"pageType":   PageType(page.Path),
		"title":      page.Title,
		"referrer":   page.Referrer,
		"deviceType": client.Device,
		"browser":    client.Browser,
		"os":         client.OS,
	}
	for k, v := range ExtractUTM(page.Query) {
		fields[k] = v
	}
	t.Track(ctx, EventPageView, fields)
	return &PageView{tracker: t, page: page, started: t.now()}
}

// RecordScroll records a scroll position as a percentage of the page. Only
// the maximum is kept; values are clamped to 0..100.
func (v *PageView) RecordScroll(percent float64) {
	if math.IsNaN(percent) {
		return
	}
	percent = math.Max(0, math.Min(100, percent))
	v.mu.Lock()
	if percent > v.maxScroll {
		v.maxScroll = percent
	}
	v.mu.Unlock()
}

// MaxScroll returns the deepest scroll position seen.
func (v *PageView) MaxScroll() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxScroll
}

// Unload flushes time on page and scroll depth. Only the first call sends.
func (v *PageView) Unload(ctx context.Context) {
	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		return
	}
	v.done = true
	depth := v.maxScroll
	v.mu.Unlock()

	elapsed := v.tracker.now().Sub(v.started)
	v.tracker.Track(ctx, EventPageExit, map[string]any{
		"path":           v.page.Path,
		"pageType":       PageType(v.page.Path),
		"timeOnPage":     int(math.Round(elapsed.Seconds())),
		"maxScrollDepth": int(math.Round(depth)),
	})
}
