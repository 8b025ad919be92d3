package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// PaymentServiceDeps wires the dependencies required by the payment service.
type PaymentServiceDeps struct {
	Carts    repositories.CartRepository
	Orders   repositories.OrderRepository
	Payments gatewayClient
	Events   OrderEventPublisher
	Receipts ReceiptArchiver
	Metrics  Metrics
	Locale   string
	Clock    func() time.Time
	Logger   Logger
}

type paymentService struct {
	carts    repositories.CartRepository
	orders   repositories.OrderRepository
	payments gatewayClient
	notifier orderNotifier
	locale   string
	now      func() time.Time
	logger   Logger
}

var _ PaymentService = (*paymentService)(nil)

// NewPaymentService constructs a PaymentService validating required dependencies.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Carts == nil {
		return nil, errors.New("payment service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment manager is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &paymentService{
		carts:    deps.Carts,
		orders:   deps.Orders,
		payments: deps.Payments,
		notifier: newOrderNotifier(deps.Events, deps.Receipts, deps.Metrics, logger),
		locale:   deps.Locale,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Verify checks the client-supplied signature and confirms the order at most once.
func (s *paymentService) Verify(ctx context.Context, cmd VerifyPaymentCommand) (domain.Order, error) {
	userID, err := requireUser(cmd.UserID)
	if err != nil {
		return domain.Order{}, err
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	gatewayOrderID := strings.TrimSpace(cmd.GatewayOrderID)
	gatewayPaymentID := strings.TrimSpace(cmd.GatewayPaymentID)
	signature := strings.TrimSpace(cmd.Signature)
	if orderID == "" || gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return domain.Order{}, fmt.Errorf("%w: orderId, gatewayOrderId, gatewayPaymentId and signature are required", ErrValidation)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}
	if order.UserID != userID {
		return domain.Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if order.Payment.GatewayOrderID == "" || order.Payment.GatewayOrderID != gatewayOrderID {
		return domain.Order{}, fmt.Errorf("%w: gateway order id does not belong to order %s", ErrValidation, orderID)
	}

	err = s.payments.VerifyPayment(ctx, payments.PaymentContext{PreferredProvider: order.Payment.Provider, Currency: order.Currency}, payments.VerifyRequest{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: gatewayPaymentID,
		Signature:        signature,
	})
	if err != nil {
		mapped := mapGatewayError(order.Payment.Provider, "verify payment", err)
		if errors.Is(mapped, ErrSignatureInvalid) {
			s.notifier.metrics.PaymentVerified(ctx, "signature_invalid")
			s.logger(ctx, "payment.signature.invalid", map[string]any{
				"severity":         "warn",
				"orderId":          orderID,
				"userId":           userID,
				"gatewayOrderId":   gatewayOrderID,
				"gatewayPaymentId": gatewayPaymentID,
			})
		}
		return domain.Order{}, mapped
	}

	return s.confirm(ctx, order.ID, gatewayPaymentID, signature, domain.ActorUser, userID)
}

func (s *paymentService) confirm(ctx context.Context, orderID, paymentID, signature string, actor domain.TimelineActor, actorID string) (domain.Order, error) {
	confirmed, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		return confirmPayment(o, paymentID, signature, stateChange{Actor: actor, ActorID: actorID, At: s.now()})
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			s.notifier.metrics.PaymentVerified(ctx, "already_paid")
		}
		return domain.Order{}, mapRepositoryError(err)
	}
	s.notifier.metrics.PaymentVerified(ctx, "confirmed")
	s.notifier.metrics.StatusTransition(ctx, string(confirmed.OrderStatus))
	s.logger(ctx, "payment.confirmed", map[string]any{
		"orderId":     confirmed.ID,
		"orderNumber": confirmed.OrderNumber,
		"paymentId":   paymentID,
		"display":     domain.FormatAmount(s.locale, confirmed.Currency, confirmed.Pricing.Total),
	})

	if confirmed.UserID != "" && confirmed.CartID != "" {
		if err := s.carts.Deactivate(ctx, confirmed.UserID, confirmed.CartID, s.now()); err != nil {
			s.logger(ctx, "cart.deactivate.failed", map[string]any{
				"orderId": confirmed.ID,
				"cartId":  confirmed.CartID,
				"error":   err.Error(),
			})
		}
	}
	s.notifier.publish(ctx, EventPaymentConfirmed, confirmed)
	s.notifier.archiveReceipt(ctx, confirmed)
	return confirmed, nil
}

// HandleWebhook verifies a gateway notification and applies it through the same confirmation path
// as client verification. Events that cannot be applied are acknowledged with an outcome instead
// of an error so the gateway stops redelivering them.
func (s *paymentService) HandleWebhook(ctx context.Context, cmd WebhookCommand) (WebhookResult, error) {
	provider := strings.ToLower(strings.TrimSpace(cmd.Provider))
	event, err := s.payments.ParseWebhook(provider, cmd.Payload, cmd.Signature)
	if err != nil {
		mapped := mapGatewayError(provider, "parse webhook", err)
		if errors.Is(mapped, ErrSignatureInvalid) {
			s.logger(ctx, "payment.webhook.signature.invalid", map[string]any{
				"severity": "warn",
				"provider": provider,
			})
			return WebhookResult{}, mapped
		}
		var gwErr *GatewayError
		if errors.As(mapped, &gwErr) {
			return WebhookResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return WebhookResult{}, mapped
	}

	result := WebhookResult{EventID: event.ID, Type: event.RawType, Outcome: WebhookOutcomeIgnored}
	if event.Type == payments.WebhookIgnored {
		return result, nil
	}

	order, err := s.orders.FindByGatewayOrderID(ctx, event.GatewayOrderID)
	if err != nil {
		mapped := mapRepositoryError(err)
		if errors.Is(mapped, ErrNotFound) {
			s.logger(ctx, "payment.webhook.unknown_order", map[string]any{
				"provider":       provider,
				"gatewayOrderId": event.GatewayOrderID,
				"eventId":        event.ID,
			})
			result.Outcome = WebhookOutcomeUnknownOrder
			return result, nil
		}
		return WebhookResult{}, mapped
	}
	result.OrderID = order.ID

	switch event.Type {
	case payments.WebhookPaymentCaptured:
		if expected, convErr := domain.ToMinorUnits(order.Pricing.Total); convErr == nil && event.Amount > 0 && event.Amount != expected {
			s.logger(ctx, "payment.webhook.amount_mismatch", map[string]any{
				"severity": "warn",
				"orderId":  order.ID,
				"expected": expected,
				"received": event.Amount,
			})
			result.Outcome = WebhookOutcomeAmountMismatch
			return result, nil
		}
		if _, err := s.confirm(ctx, order.ID, event.GatewayPaymentID, "", domain.ActorSystem, provider); err != nil {
			if errors.Is(err, ErrAlreadyPaid) {
				result.Outcome = WebhookOutcomeAlreadyPaid
				return result, nil
			}
			if errors.Is(err, ErrInvalidTransition) {
				s.logger(ctx, "payment.webhook.unapplied", map[string]any{
					"orderId": order.ID,
					"error":   err.Error(),
				})
				return result, nil
			}
			return WebhookResult{}, err
		}
		result.Outcome = WebhookOutcomeConfirmed
	case payments.WebhookPaymentFailed:
		failed, err := s.orders.Mutate(ctx, order.ID, func(o *domain.Order) error {
			return failPayment(o, event.Reason, stateChange{Actor: domain.ActorSystem, ActorID: provider, At: s.now()})
		})
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				if order.PaymentStatus == domain.PaymentStatusPaid {
					result.Outcome = WebhookOutcomeAlreadyPaid
				}
				return result, nil
			}
			return WebhookResult{}, mapRepositoryError(err)
		}
		s.notifier.metrics.PaymentVerified(ctx, "failed")
		s.notifier.publish(ctx, EventPaymentFailed, failed)
		result.Outcome = WebhookOutcomeFailed
	}
	return result, nil
}

// Refund issues a gateway refund and records it. Without an amount the remaining balance is refunded.
func (s *paymentService) Refund(ctx context.Context, cmd RefundCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}
	if order.PaymentStatus != domain.PaymentStatusPaid && order.PaymentStatus != domain.PaymentStatusPartiallyRefunded {
		return domain.Order{}, fmt.Errorf("%w: order %s payment is %s", ErrInvalidTransition, orderID, order.PaymentStatus)
	}

	amount := refundable(order)
	if cmd.Amount != nil {
		amount = *cmd.Amount
	}
	reason := strings.TrimSpace(cmd.Reason)
	change := stateChange{Actor: domain.ActorAdmin, ActorID: cmd.ActorID, At: s.now()}
	// The gateway refund cannot be undone, so the order must accept it before money moves.
	preview := domain.CloneOrder(order)
	if err := applyRefund(&preview, amount, reason, "", change); err != nil {
		return domain.Order{}, err
	}
	minor, err := domain.ToMinorUnits(amount)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var refundAmount *int64
	if !amount.Equal(order.Pricing.Total) {
		refundAmount = &minor
	}
	result, err := s.payments.Refund(ctx, payments.PaymentContext{PreferredProvider: order.Payment.Provider, Currency: order.Currency}, payments.RefundRequest{
		GatewayOrderID:   order.Payment.GatewayOrderID,
		GatewayPaymentID: order.Payment.GatewayPaymentID,
		Amount:           refundAmount,
		Reason:           reason,
		IdempotencyKey:   fmt.Sprintf("%s-refund-%s", order.ID, amount.String()),
		Metadata:         map[string]string{"orderNumber": order.OrderNumber},
	})
	if err != nil {
		return domain.Order{}, mapGatewayError(order.Payment.Provider, "refund", err)
	}
	if result.Status == payments.StatusFailed {
		return domain.Order{}, &GatewayError{Provider: result.Provider, Op: "refund", Rejected: true, Err: errors.New("refund reported as failed")}
	}

	refunded, err := s.orders.Mutate(ctx, order.ID, func(o *domain.Order) error {
		return applyRefund(o, amount, reason, result.RefundID, change)
	})
	if err != nil {
		s.logger(ctx, "order.refund.record.failed", map[string]any{
			"orderId":  order.ID,
			"refundId": result.RefundID,
			"error":    err.Error(),
		})
		return domain.Order{}, mapRepositoryError(err)
	}
	s.notifier.metrics.StatusTransition(ctx, string(refunded.PaymentStatus))
	s.notifier.publish(ctx, EventOrderRefunded, refunded)
	return refunded, nil
}

// refundable returns the balance still refundable on the order.
func refundable(order domain.Order) decimal.Decimal {
	remaining := order.Pricing.Total
	if order.Refund != nil {
		remaining = remaining.Sub(order.Refund.Amount)
	}
	return remaining
}
