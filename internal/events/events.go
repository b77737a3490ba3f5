// Package events forwards analytics events to a configured sink.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one analytics event after the gateway has attached the tenant id.
type Event struct {
	TenantID string
	Slug     string
	// Type is the client's eventType, e.g. "page_view".
	Type string
	// Body is the JSON object forwarded to the sink.
	Body       []byte
	ReceivedAt time.Time
}

// Publisher delivers analytics events.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Payload is a validated client event awaiting its tenant id.
type Payload struct {
	Type   string
	fields map[string]any
}

// ParsePayload checks that payload is a JSON object carrying a non-empty
// string eventType.
func ParsePayload(payload []byte) (*Payload, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("analytics payload must be a JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("analytics payload must be a JSON object")
	}

	eventType, _ := fields["eventType"].(string)
	if eventType == "" {
		return nil, fmt.Errorf("analytics payload requires eventType")
	}
	return &Payload{Type: eventType, fields: fields}, nil
}

// Event merges tenantID into the payload.
func (p *Payload) Event(slug, tenantID string, now time.Time) (*Event, error) {
	fields := make(map[string]any, len(p.fields)+1)
	for k, v := range p.fields {
		fields[k] = v
	}
	fields["tenantId"] = tenantID
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode analytics payload: %w", err)
	}

	return &Event{
		TenantID:   tenantID,
		Slug:       slug,
		Type:       p.Type,
		Body:       body,
		ReceivedAt: now,
	}, nil
}

// NewEvent parses payload and merges tenantID into it.
func NewEvent(slug, tenantID string, payload []byte, now time.Time) (*Event, error) {
	p, err := ParsePayload(payload)
	if err != nil {
		return nil, err
	}
	return p.Event(slug, tenantID, now)
}
