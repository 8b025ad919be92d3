package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// AMQPChannel is the subset of *amqp.Channel used by AMQPPublisher.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes to a durable topic exchange using the event type as routing key.
type AMQPPublisher struct {
	channel  AMQPChannel
	exchange string
	closer   func() error
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	publisher, err := NewAMQPPublisher(channel, exchange)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, err
	}
	publisher.closer = conn.Close
	return publisher, nil
}

// NewAMQPPublisher declares the topic exchange on an open channel.
func NewAMQPPublisher(channel AMQPChannel, exchange string) (*AMQPPublisher, error) {
	if channel == nil {
		return nil, errors.New("amqp publisher: channel is required")
	}
	if exchange == "" {
		return nil, errors.New("amqp publisher: exchange is required")
	}
	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{channel: channel, exchange: exchange}, nil
}

// PublishOrderEvent publishes a persistent JSON message.
func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encode(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	headers := amqp.Table{}
	for key, value := range attributes(event) {
		headers[key] = value
	}
	err = p.channel.Publish(p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// Close closes the channel and, when dialed here, the connection.
func (p *AMQPPublisher) Close() error {
	err := p.channel.Close()
	if p.closer != nil {
		if closeErr := p.closer(); err == nil {
			err = closeErr
		}
	}
	return err
}
