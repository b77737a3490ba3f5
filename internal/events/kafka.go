package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sitefront/tenant-gateway/internal/metrics"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by tenant id, so one tenant's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer  MessageWriter
	metrics *metrics.Metrics
}

// NewKafkaWriter builds a hash-balanced async writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
}

// NewKafkaPublisher wraps a writer. m may be nil.
func NewKafkaPublisher(writer MessageWriter, m *metrics.Metrics) (*KafkaPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("kafka writer required")
	}
	return &KafkaPublisher{writer: writer, metrics: m}, nil
}

// Publish enqueues the event.
func (p *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	msg := kafka.Message{
		Key:   []byte(event.TenantID),
		Value: event.Body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "tenant_slug", Value: []byte(event.Slug)},
		},
		Time: event.ReceivedAt,
	}
	err := p.writer.WriteMessages(ctx, msg)
	record(p.metrics, "kafka", err)
	if err != nil {
		return fmt.Errorf("write analytics event: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
