package events

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// PubSubPublisher publishes order events to a Pub/Sub topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher constructs a Pub/Sub backed publisher.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	return &PubSubPublisher{topic: topic}, nil
}

// PublishOrderEvent enqueues the event and waits for the server-assigned id.
func (p *PubSubPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes(event),
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// Ping reports whether the topic exists.
func (p *PubSubPublisher) Ping(ctx context.Context) error {
	ok, err := p.topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pubsub topic %s not found", p.topic.ID())
	}
	return nil
}

// Close flushes pending messages.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return nil
}
