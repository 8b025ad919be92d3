package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus enumerates the money lifecycle of an order.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// TimelineActor identifies who caused a timeline entry.
type TimelineActor string

const (
	ActorSystem TimelineActor = "system"
	ActorAdmin  TimelineActor = "admin"
	ActorUser   TimelineActor = "user"
)

// StoreMode reports which backend is serving requests.
type StoreMode string

const (
	StoreModePersistent StoreMode = "persistent"
	StoreModeMemory     StoreMode = "memory"
)

// Product is the read-only catalog projection needed to price cart lines.
type Product struct {
	ID        string
	Name      string
	Slug      string
	Image     string
	Price     decimal.Decimal
	SalePrice *decimal.Decimal
	Variants  []string
	Active    bool
}

// EffectivePrice returns the sale price when it undercuts the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.GreaterThanOrEqual(decimal.Zero) && p.SalePrice.LessThan(p.Price) {
		return *p.SalePrice
	}
	return p.Price
}

// CartItem is a single mutable cart line.
type CartItem struct {
	ProductID string
	Variant   string
	Name      string
	Slug      string
	Image     string
	Quantity  int
	UnitPrice decimal.Decimal
	ListPrice *decimal.Decimal
	AddedAt   time.Time
}

// LineTotal returns price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-user mutable aggregate.
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	Active    bool
	ExpiresAt time.Time
	Totals    Pricing
	ItemCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address is used for both shipping and billing.
type Address struct {
	FirstName  string
	LastName   string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	Email      string
}

// Pricing is the canonical money block for carts and orders.
type Pricing struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// OrderItem is the immutable snapshot of a cart line.
type OrderItem struct {
	ProductID     string
	Variant       string
	Name          string
	Slug          string
	Image         string
	Quantity      int
	UnitPrice     decimal.Decimal
	DiscountPrice *decimal.Decimal
	TotalPrice    decimal.Decimal
}

// PaymentDetails stores gateway identifiers for reconciliation.
type PaymentDetails struct {
	Provider         string
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	TransactionID    string
	PaidAt           *time.Time
}

// TimelineEntry is an append-only status log record.
type TimelineEntry struct {
	Status    string
	Message   string
	Actor     TimelineActor
	ActorID   string
	Metadata  map[string]string
	Timestamp time.Time
}

// ShippingInfo tracks delivery progress.
type ShippingInfo struct {
	Method            string
	Cost              decimal.Decimal
	TrackingNumber    string
	Courier           string
	ShippedAt         *time.Time
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
}

// Refund records a gateway refund.
type Refund struct {
	Amount     decimal.Decimal
	Reason     string
	GatewayRef string
	RefundedAt time.Time
}

// Order is an immutable-items snapshot mutated only through status transitions.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Email           string
	Currency        string
	Items           []OrderItem
	ShippingAddress Address
	BillingAddress  Address
	OrderStatus     OrderStatus
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	Payment         PaymentDetails
	Pricing         Pricing
	Shipping        ShippingInfo
	Notes           string
	Timeline        []TimelineEntry
	Refund          *Refund
	CartID          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Page is a page/limit result window.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int
}

// Pages returns the number of pages for the window size.
func (p Page[T]) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasNext reports whether another page follows.
func (p Page[T]) HasNext() bool {
	return p.Page < p.Pages()
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates the service runs with reduced guarantees.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	StoreMode   StoreMode
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
