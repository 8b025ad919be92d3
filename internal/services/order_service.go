package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

const (
	defaultOrderPageSize = 10
	maxOrderPageSize     = 100
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders           repositories.OrderRepository
	Events           OrderEventPublisher
	Metrics          Metrics
	DeliveryEstimate time.Duration
	Clock            func() time.Time
	Logger           Logger
}

type orderService struct {
	orders           repositories.OrderRepository
	notifier         orderNotifier
	deliveryEstimate time.Duration
	clock            func() time.Time
	logger           Logger
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	estimate := deps.DeliveryEstimate
	if estimate <= 0 {
		estimate = defaultDeliveryEstimate
	}
	return &orderService{
		orders:           deps.Orders,
		notifier:         newOrderNotifier(deps.Events, nil, deps.Metrics, logger),
		deliveryEstimate: estimate,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID string, filter OrderListFilter) (domain.Page[domain.Order], error) {
	uid, err := requireUser(userID)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	filter.UserID = uid
	return s.List(ctx, filter)
}

func (s *orderService) GetForUser(ctx context.Context, userID, orderID string) (domain.Order, error) {
	uid, err := requireUser(userID)
	if err != nil {
		return domain.Order{}, err
	}
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != uid {
		return domain.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error) {
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	if status != "" {
		if _, known := orderStateTransitions[domain.OrderStatus(status)]; !known && !isTerminalStatus(domain.OrderStatus(status)) {
			return domain.Page[domain.Order]{}, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
		}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}
	result, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID: strings.TrimSpace(filter.UserID),
		Status: status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return domain.Page[domain.Order]{}, mapRepositoryError(err)
	}
	return result, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}
	return order, nil
}

// UpdateStatus applies the plain transitions: processing and cancelled. Confirmation, shipping,
// delivery and refunds go through their own operations.
func (s *orderService) UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (domain.Order, error) {
	target := domain.OrderStatus(strings.ToLower(strings.TrimSpace(string(cmd.Status))))
	switch target {
	case domain.OrderStatusProcessing, domain.OrderStatusCancelled:
	case "":
		return domain.Order{}, fmt.Errorf("%w: status is required", ErrValidation)
	default:
		return domain.Order{}, fmt.Errorf("%w: status %q cannot be set directly", ErrValidation, cmd.Status)
	}
	message := strings.TrimSpace(cmd.Message)
	if message == "" {
		message = defaultStatusMessage(target)
	}
	return s.mutate(ctx, cmd.OrderID, func(o *domain.Order) error {
		return transitionOrder(o, target, stateChange{Actor: cmd.Actor, ActorID: cmd.ActorID, Message: message, At: s.clock()})
	})
}

func (s *orderService) MarkShipped(ctx context.Context, cmd MarkShippedCommand) (domain.Order, error) {
	tracking := strings.TrimSpace(cmd.TrackingNumber)
	courier := strings.TrimSpace(cmd.Courier)
	if tracking == "" || courier == "" {
		return domain.Order{}, fmt.Errorf("%w: trackingNumber and courier are required", ErrValidation)
	}
	return s.mutate(ctx, cmd.OrderID, func(o *domain.Order) error {
		return markShipped(o, tracking, courier, cmd.EstimatedDelivery, s.deliveryEstimate, stateChange{Actor: cmd.Actor, ActorID: cmd.ActorID, At: s.clock()})
	})
}

func (s *orderService) MarkDelivered(ctx context.Context, cmd MarkDeliveredCommand) (domain.Order, error) {
	return s.mutate(ctx, cmd.OrderID, func(o *domain.Order) error {
		return markDelivered(o, stateChange{Actor: cmd.Actor, ActorID: cmd.ActorID, At: s.clock()})
	})
}

func (s *orderService) mutate(ctx context.Context, orderID string, fn repositories.OrderMutation) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	var previous domain.OrderStatus
	updated, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		previous = o.OrderStatus
		return fn(o)
	})
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}
	s.logger(ctx, "order.status.changed", map[string]any{
		"orderId":  updated.ID,
		"previous": string(previous),
		"current":  string(updated.OrderStatus),
	})
	s.notifier.metrics.StatusTransition(ctx, string(updated.OrderStatus))
	s.notifier.publish(ctx, EventStatusChanged, updated)
	return updated, nil
}

func isTerminalStatus(status domain.OrderStatus) bool {
	return status == domain.OrderStatusCancelled || status == domain.OrderStatusRefunded
}

func defaultStatusMessage(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusProcessing:
		return "Order is being processed"
	case domain.OrderStatusCancelled:
		return "Order cancelled"
	default:
		return "Order status updated"
	}
}
