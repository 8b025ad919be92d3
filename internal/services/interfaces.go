package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
)

// Logger is the structured logging adapter handed to services.
type Logger func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}

// CartService exposes the cart aggregate for the authenticated user.
type CartService interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (domain.Cart, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartItemCommand) (domain.Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (domain.Cart, error)
	Clear(ctx context.Context, userID string) (domain.Cart, error)
}

// AddCartItemCommand adds quantity units of a catalog product to the cart.
type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Variant   string
	Quantity  int
}

// UpdateCartItemCommand replaces the quantity of an existing line. Quantity <= 0 removes it.
type UpdateCartItemCommand struct {
	UserID    string
	ProductID string
	Variant   string
	Quantity  int
}

// RemoveCartItemCommand removes a line if present.
type RemoveCartItemCommand struct {
	UserID    string
	ProductID string
	Variant   string
}

// CheckoutService turns the caller's cart into a pending order with a gateway intent.
type CheckoutService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CheckoutResult, error)
}

// CreateOrderCommand carries checkout input. BillingAddress defaults to ShippingAddress.
type CreateOrderCommand struct {
	UserID            string
	Email             string
	ShippingAddress   domain.Address
	BillingAddress    *domain.Address
	PaymentMethod     string
	Notes             string
	PreferredProvider string
	IdempotencyKey    string
}

// CheckoutResult pairs the created order with the gateway intent the client completes.
type CheckoutResult struct {
	Order  domain.Order
	Intent payments.Intent
}

// PaymentService confirms, fails, and refunds payments.
type PaymentService interface {
	Verify(ctx context.Context, cmd VerifyPaymentCommand) (domain.Order, error)
	HandleWebhook(ctx context.Context, cmd WebhookCommand) (WebhookResult, error)
	Refund(ctx context.Context, cmd RefundCommand) (domain.Order, error)
}

// VerifyPaymentCommand is the client-side completion callback.
type VerifyPaymentCommand struct {
	UserID           string
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// WebhookCommand carries an unverified gateway notification.
type WebhookCommand struct {
	Provider  string
	Payload   []byte
	Signature string
}

// WebhookOutcome summarises what a webhook did to the order.
type WebhookOutcome string

const (
	WebhookOutcomeConfirmed      WebhookOutcome = "confirmed"
	WebhookOutcomeFailed         WebhookOutcome = "failed"
	WebhookOutcomeAlreadyPaid    WebhookOutcome = "already_paid"
	WebhookOutcomeIgnored        WebhookOutcome = "ignored"
	WebhookOutcomeUnknownOrder   WebhookOutcome = "unknown_order"
	WebhookOutcomeAmountMismatch WebhookOutcome = "amount_mismatch"
)

// WebhookResult is returned to the webhook handler for acknowledgement.
type WebhookResult struct {
	EventID string
	Type    string
	OrderID string
	Outcome WebhookOutcome
}

// RefundCommand refunds a paid order. A nil Amount refunds the remaining balance.
type RefundCommand struct {
	OrderID string
	Amount  *decimal.Decimal
	Reason  string
	ActorID string
}

// OrderService reads orders and drives fulfilment transitions.
type OrderService interface {
	ListForUser(ctx context.Context, userID string, filter OrderListFilter) (domain.Page[domain.Order], error)
	GetForUser(ctx context.Context, userID, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (domain.Order, error)
	MarkShipped(ctx context.Context, cmd MarkShippedCommand) (domain.Order, error)
	MarkDelivered(ctx context.Context, cmd MarkDeliveredCommand) (domain.Order, error)
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID string
	Status string
	Page   int
	Limit  int
}

// OrderStatusCommand requests a plain status transition (processing, cancelled).
type OrderStatusCommand struct {
	OrderID string
	Status  domain.OrderStatus
	Message string
	Actor   domain.TimelineActor
	ActorID string
}

// MarkShippedCommand records a shipment.
type MarkShippedCommand struct {
	OrderID           string
	TrackingNumber    string
	Courier           string
	EstimatedDelivery *time.Time
	Actor             domain.TimelineActor
	ActorID           string
}

// MarkDeliveredCommand records delivery.
type MarkDeliveredCommand struct {
	OrderID string
	Actor   domain.TimelineActor
	ActorID string
}

// SystemService exposes operational metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// Order event types published on the configured bus.
const (
	EventOrderCreated     = "order.created"
	EventPaymentConfirmed = "order.payment.confirmed"
	EventPaymentFailed    = "order.payment.failed"
	EventStatusChanged    = "order.status.changed"
	EventOrderRefunded    = "order.refunded"
)

// OrderEvent is the envelope published for order lifecycle changes.
type OrderEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	UserID        string    `json:"userId,omitempty"`
	OrderStatus   string    `json:"orderStatus"`
	PaymentStatus string    `json:"paymentStatus"`
	Total         string    `json:"total"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// ReceiptArchiver persists a receipt for a confirmed order and returns its object path.
type ReceiptArchiver interface {
	ArchiveReceipt(ctx context.Context, order domain.Order) (string, error)
}

// Metrics receives business counters. *observability.Metrics satisfies it.
type Metrics interface {
	OrderCreated(ctx context.Context, provider string)
	PaymentVerified(ctx context.Context, outcome string)
	StatusTransition(ctx context.Context, status string)
}

type noopMetrics struct{}

func (noopMetrics) OrderCreated(context.Context, string)     {}
func (noopMetrics) PaymentVerified(context.Context, string)  {}
func (noopMetrics) StatusTransition(context.Context, string) {}

// gatewayClient abstracts payments.Manager for easier testing.
type gatewayClient interface {
	Resolve(paymentCtx payments.PaymentContext) (string, error)
	CreateIntent(ctx context.Context, paymentCtx payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error)
	VerifyPayment(ctx context.Context, paymentCtx payments.PaymentContext, req payments.VerifyRequest) error
	Refund(ctx context.Context, paymentCtx payments.PaymentContext, req payments.RefundRequest) (payments.RefundResult, error)
	ParseWebhook(provider string, payload []byte, signature string) (payments.WebhookEvent, error)
}

var _ gatewayClient = (*payments.Manager)(nil)
