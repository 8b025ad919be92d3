package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

// orderNotifier runs fire-and-forget side effects. Failures are logged and never returned.
type orderNotifier struct {
	events   OrderEventPublisher
	receipts ReceiptArchiver
	metrics  Metrics
	logger   Logger
	newID    func() string
}

func newOrderNotifier(events OrderEventPublisher, receipts ReceiptArchiver, metrics Metrics, logger Logger) orderNotifier {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = noopLogger
	}
	return orderNotifier{
		events:   events,
		receipts: receipts,
		metrics:  metrics,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

func (n orderNotifier) publish(ctx context.Context, eventType string, order domain.Order) {
	if n.events == nil {
		return
	}
	event := OrderEvent{
		ID:            n.newID(),
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		OrderStatus:   string(order.OrderStatus),
		PaymentStatus: string(order.PaymentStatus),
		Total:         order.Pricing.Total.String(),
		Currency:      order.Currency,
		OccurredAt:    order.UpdatedAt,
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := n.events.PublishOrderEvent(ctx, event); err != nil {
		n.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   eventType,
			"order":  order.ID,
			"error":  err.Error(),
			"status": event.OrderStatus,
		})
	}
}

func (n orderNotifier) archiveReceipt(ctx context.Context, order domain.Order) {
	if n.receipts == nil {
		return
	}
	path, err := n.receipts.ArchiveReceipt(ctx, order)
	if err != nil {
		n.logger(ctx, "order.receipt.archive.failed", map[string]any{
			"order": order.ID,
			"error": err.Error(),
		})
		return
	}
	n.logger(ctx, "order.receipt.archived", map[string]any{
		"order": order.ID,
		"path":  path,
	})
}
