package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// Kafka topics, one per event family.
const (
	TopicOrderCreated       = "order-created"
	TopicPaymentProcessed   = "payment-processed"
	TopicPaymentFailed      = "payment-failed"
	TopicOrderStatusUpdated = "order-status-updated"
)

// KafkaWriter is the subset of *kafka.Writer used by KafkaPublisher.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher routes order events to per-family topics keyed by order id.
type KafkaPublisher struct {
	writer KafkaWriter
	now    func() time.Time
}

// NewKafkaWriter builds a writer without a fixed topic so each message can carry its own.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher wraps a writer.
func NewKafkaPublisher(writer KafkaWriter) (*KafkaPublisher, error) {
	if writer == nil {
		return nil, errors.New("kafka publisher: writer is required")
	}
	return &KafkaPublisher{writer: writer, now: time.Now}, nil
}

// TopicFor maps an event type to its Kafka topic.
func TopicFor(eventType string) string {
	switch eventType {
	case services.EventOrderCreated:
		return TopicOrderCreated
	case services.EventPaymentConfirmed:
		return TopicPaymentProcessed
	case services.EventPaymentFailed:
		return TopicPaymentFailed
	default:
		return TopicOrderStatusUpdated
	}
}

// PublishOrderEvent writes the event to its topic.
func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	value, err := encode(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	headers := make([]kafka.Header, 0, 2)
	for _, key := range []string{"eventId", "eventType"} {
		if v, ok := attributes(event)[key]; ok {
			headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
		}
	}
	msg := kafka.Message{
		Topic:   TopicFor(event.Type),
		Key:     []byte(event.OrderID),
		Value:   value,
		Headers: headers,
		Time:    p.now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
