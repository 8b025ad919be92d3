package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts    repositories.CartRepository
	Orders   repositories.OrderRepository
	Factory  *OrderFactory
	Payments gatewayClient
	Events   OrderEventPublisher
	Metrics  Metrics
	Clock    func() time.Time
	Logger   Logger
}

type checkoutService struct {
	carts    repositories.CartRepository
	orders   repositories.OrderRepository
	factory  *OrderFactory
	payments gatewayClient
	notifier orderNotifier
	now      func() time.Time
	logger   Logger
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Factory == nil {
		return nil, errors.New("checkout service: order factory is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &checkoutService{
		carts:    deps.Carts,
		orders:   deps.Orders,
		factory:  deps.Factory,
		payments: deps.Payments,
		notifier: newOrderNotifier(deps.Events, nil, deps.Metrics, logger),
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateOrder snapshots the caller's cart into a pending order and opens a gateway intent for
// the server-computed total. A gateway failure cancels the order instead of leaving it pending.
func (s *checkoutService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CheckoutResult, error) {
	userID, err := requireUser(cmd.UserID)
	if err != nil {
		return CheckoutResult{}, err
	}
	cart, err := s.carts.GetActive(ctx, userID, s.now())
	if err != nil {
		return CheckoutResult{}, mapRepositoryError(err)
	}

	paymentCtx := payments.PaymentContext{
		PreferredProvider: cmd.PreferredProvider,
		Currency:          s.factory.currency,
	}
	provider, err := s.payments.Resolve(paymentCtx)
	if err != nil {
		return CheckoutResult{}, mapGatewayError(cmd.PreferredProvider, "resolve provider", err)
	}

	order, err := s.factory.CreateOrder(ctx, CreateOrderInput{
		Cart:            cart,
		Email:           cmd.Email,
		ShippingAddress: cmd.ShippingAddress,
		BillingAddress:  cmd.BillingAddress,
		PaymentMethod:   cmd.PaymentMethod,
		Notes:           cmd.Notes,
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	s.notifier.metrics.OrderCreated(ctx, provider)
	s.notifier.publish(ctx, EventOrderCreated, order)
	s.logger(ctx, "order.created", map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"total":       order.Pricing.Total.String(),
		"provider":    provider,
	})

	amount, err := domain.ToMinorUnits(order.Pricing.Total)
	if err != nil {
		return CheckoutResult{}, s.abandon(ctx, order, provider, err)
	}
	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = order.ID
	}
	intent, err := s.payments.CreateIntent(ctx, payments.PaymentContext{PreferredProvider: provider, Currency: order.Currency}, payments.IntentRequest{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Amount:         amount,
		Currency:       order.Currency,
		Email:          order.Email,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return CheckoutResult{}, s.abandon(ctx, order, provider, err)
	}

	updated, err := s.orders.Mutate(ctx, order.ID, func(o *domain.Order) error {
		o.Payment.Provider = intent.Provider
		o.Payment.GatewayOrderID = intent.GatewayOrderID
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return CheckoutResult{}, mapRepositoryError(err)
	}
	return CheckoutResult{Order: updated, Intent: intent}, nil
}

// abandon cancels the order after a gateway failure and returns the mapped gateway error.
func (s *checkoutService) abandon(ctx context.Context, order domain.Order, provider string, cause error) error {
	gwErr := mapGatewayError(provider, "create intent", cause)
	s.logger(ctx, "payment.intent.failed", map[string]any{
		"orderId":  order.ID,
		"provider": provider,
		"error":    cause.Error(),
	})
	cancelled, err := s.orders.Mutate(ctx, order.ID, func(o *domain.Order) error {
		o.Payment.Provider = provider
		return abandonOnGatewayError(o, stateChange{At: s.now()})
	})
	if err != nil {
		s.logger(ctx, "order.cancel.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return gwErr
	}
	s.notifier.metrics.StatusTransition(ctx, string(cancelled.OrderStatus))
	s.notifier.publish(ctx, EventPaymentFailed, cancelled)
	return gwErr
}
