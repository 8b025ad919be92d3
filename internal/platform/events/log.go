package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// LogPublisher writes events to the structured log. It is the default driver for local runs.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// PublishOrderEvent logs the event.
func (p *LogPublisher) PublishOrderEvent(_ context.Context, event services.OrderEvent) error {
	p.logger.Info("order event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID),
		zap.String("order_number", event.OrderNumber),
		zap.String("order_status", event.OrderStatus),
		zap.String("payment_status", event.PaymentStatus),
		zap.String("total", event.Total),
	)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error {
	return nil
}
