package services

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

const defaultDeliveryEstimate = 5 * 24 * time.Hour

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:  {domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusCancelled, domain.OrderStatusRefunded},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped, domain.OrderStatusRefunded},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered, domain.OrderStatusRefunded},
	domain.OrderStatusDelivered:  {domain.OrderStatusRefunded},
}

var paymentStateTransitions = map[domain.PaymentStatus][]domain.PaymentStatus{
	domain.PaymentStatusPending:           {domain.PaymentStatusPaid, domain.PaymentStatusFailed},
	domain.PaymentStatusFailed:            {domain.PaymentStatusPaid},
	domain.PaymentStatusPaid:              {domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded},
	domain.PaymentStatusPartiallyRefunded: {domain.PaymentStatusPartiallyRefunded, domain.PaymentStatusRefunded},
}

// CanTransitionOrder reports whether the order status table allows from → to.
func CanTransitionOrder(from, to domain.OrderStatus) bool {
	return slices.Contains(orderStateTransitions[from], to)
}

// CanTransitionPayment reports whether the payment status table allows from → to.
func CanTransitionPayment(from, to domain.PaymentStatus) bool {
	return slices.Contains(paymentStateTransitions[from], to)
}

// stateChange describes who caused a transition and why.
type stateChange struct {
	Actor    domain.TimelineActor
	ActorID  string
	Message  string
	Metadata map[string]string
	At       time.Time
}

func (c stateChange) entry(status string) domain.TimelineEntry {
	actor := c.Actor
	if actor == "" {
		actor = domain.ActorSystem
	}
	return domain.TimelineEntry{
		Status:    status,
		Message:   c.Message,
		Actor:     actor,
		ActorID:   c.ActorID,
		Metadata:  c.Metadata,
		Timestamp: c.At,
	}
}

func transitionOrder(order *domain.Order, to domain.OrderStatus, change stateChange) error {
	if !CanTransitionOrder(order.OrderStatus, to) {
		return fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidTransition, order.ID, order.OrderStatus, to)
	}
	order.OrderStatus = to
	order.UpdatedAt = change.At
	order.Timeline = append(order.Timeline, change.entry(string(to)))
	return nil
}

// confirmPayment is the single at-most-once confirmation path shared by client verification and
// gateway webhooks. It must run inside the order's atomic mutation.
func confirmPayment(order *domain.Order, paymentID, signature string, change stateChange) error {
	switch order.PaymentStatus {
	case domain.PaymentStatusPaid, domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded:
		return fmt.Errorf("%w: order %s", ErrAlreadyPaid, order.ID)
	}
	if !CanTransitionPayment(order.PaymentStatus, domain.PaymentStatusPaid) || !CanTransitionOrder(order.OrderStatus, domain.OrderStatusConfirmed) {
		return fmt.Errorf("%w: order %s is %s/%s", ErrInvalidTransition, order.ID, order.OrderStatus, order.PaymentStatus)
	}
	paidAt := change.At
	order.PaymentStatus = domain.PaymentStatusPaid
	order.Payment.GatewayPaymentID = paymentID
	if signature != "" {
		order.Payment.GatewaySignature = signature
	}
	order.Payment.TransactionID = paymentID
	order.Payment.PaidAt = &paidAt
	if change.Message == "" {
		change.Message = "Payment verified and order confirmed"
	}
	return transitionOrder(order, domain.OrderStatusConfirmed, change)
}

// failPayment records a failed payment attempt; the order stays pending so the customer can retry.
func failPayment(order *domain.Order, reason string, change stateChange) error {
	if !CanTransitionPayment(order.PaymentStatus, domain.PaymentStatusFailed) {
		return fmt.Errorf("%w: payment of order %s is %s", ErrInvalidTransition, order.ID, order.PaymentStatus)
	}
	order.PaymentStatus = domain.PaymentStatusFailed
	order.UpdatedAt = change.At
	if change.Message == "" {
		change.Message = "Payment failed"
		if reason != "" {
			change.Message += ": " + reason
		}
	}
	order.Timeline = append(order.Timeline, change.entry(string(domain.PaymentStatusFailed)))
	return nil
}

// abandonOnGatewayError moves a freshly created order to the terminal cancelled/failed pair.
func abandonOnGatewayError(order *domain.Order, change stateChange) error {
	if order.PaymentStatus != domain.PaymentStatusPending {
		return fmt.Errorf("%w: payment of order %s is %s", ErrInvalidTransition, order.ID, order.PaymentStatus)
	}
	order.PaymentStatus = domain.PaymentStatusFailed
	if change.Message == "" {
		change.Message = "Payment gateway error; order cancelled"
	}
	return transitionOrder(order, domain.OrderStatusCancelled, change)
}

func markShipped(order *domain.Order, trackingNumber, courier string, estimated *time.Time, fallbackEstimate time.Duration, change stateChange) error {
	if order.OrderStatus != domain.OrderStatusConfirmed && order.OrderStatus != domain.OrderStatusProcessing {
		return fmt.Errorf("%w: order %s cannot ship from %s", ErrInvalidTransition, order.ID, order.OrderStatus)
	}
	if change.Message == "" {
		change.Message = fmt.Sprintf("Shipped via %s (tracking %s)", courier, trackingNumber)
	}
	change.Metadata = map[string]string{"trackingNumber": trackingNumber, "courier": courier}
	if err := transitionOrder(order, domain.OrderStatusShipped, change); err != nil {
		return err
	}
	shippedAt := change.At
	order.Shipping.TrackingNumber = trackingNumber
	order.Shipping.Courier = courier
	order.Shipping.ShippedAt = &shippedAt
	eta := shippedAt.Add(fallbackEstimate)
	if estimated != nil && estimated.After(shippedAt) {
		eta = estimated.UTC()
	}
	order.Shipping.EstimatedDelivery = &eta
	return nil
}

func markDelivered(order *domain.Order, change stateChange) error {
	if order.OrderStatus != domain.OrderStatusShipped {
		return fmt.Errorf("%w: order %s cannot be delivered from %s", ErrInvalidTransition, order.ID, order.OrderStatus)
	}
	if change.Message == "" {
		change.Message = "Order delivered"
	}
	if err := transitionOrder(order, domain.OrderStatusDelivered, change); err != nil {
		return err
	}
	deliveredAt := change.At
	order.Shipping.DeliveredAt = &deliveredAt
	return nil
}

// applyRefund records a refund of amount. Full refunds move the order to refunded, except for a
// cancelled order, which stays cancelled while its payment moves to refunded.
func applyRefund(order *domain.Order, amount decimal.Decimal, reason, gatewayRef string, change stateChange) error {
	refunded := decimal.Zero
	if order.Refund != nil {
		refunded = order.Refund.Amount
	}
	cumulative := refunded.Add(amount)
	full := cumulative.GreaterThanOrEqual(order.Pricing.Total)
	moveOrder := full && order.OrderStatus != domain.OrderStatusCancelled

	target := domain.PaymentStatusPartiallyRefunded
	if full {
		target = domain.PaymentStatusRefunded
	}
	if !CanTransitionPayment(order.PaymentStatus, target) {
		return fmt.Errorf("%w: payment of order %s is %s", ErrInvalidTransition, order.ID, order.PaymentStatus)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: refund amount must be positive", ErrValidation)
	}
	if cumulative.GreaterThan(order.Pricing.Total) {
		return fmt.Errorf("%w: refund amount %s exceeds refundable balance %s", ErrValidation, amount, order.Pricing.Total.Sub(refunded))
	}
	if moveOrder && !CanTransitionOrder(order.OrderStatus, domain.OrderStatusRefunded) {
		return fmt.Errorf("%w: order %s cannot be refunded from %s", ErrInvalidTransition, order.ID, order.OrderStatus)
	}

	order.PaymentStatus = target
	order.Refund = &domain.Refund{
		Amount:     cumulative,
		Reason:     reason,
		GatewayRef: gatewayRef,
		RefundedAt: change.At,
	}
	if change.Metadata == nil {
		change.Metadata = map[string]string{}
	}
	change.Metadata["amount"] = amount.String()
	if gatewayRef != "" {
		change.Metadata["refundId"] = gatewayRef
	}
	if moveOrder {
		if change.Message == "" {
			change.Message = "Order refunded"
		}
		return transitionOrder(order, domain.OrderStatusRefunded, change)
	}
	if change.Message == "" {
		change.Message = "Partial refund issued"
		if full {
			change.Message = "Payment refunded for cancelled order"
		}
	}
	order.UpdatedAt = change.At
	order.Timeline = append(order.Timeline, change.entry(string(target)))
	return nil
}
