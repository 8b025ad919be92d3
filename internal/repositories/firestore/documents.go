package firestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

// Amounts are stored as decimal strings so no precision is lost to float64 encoding.

type cartDocument struct {
	CartID        string             `firestore:"cartId"`
	UserID        string             `firestore:"userId"`
	Items         []cartItemDocument `firestore:"items"`
	Active        bool               `firestore:"active"`
	ExpiresAt     time.Time          `firestore:"expiresAt"`
	Totals        pricingDocument    `firestore:"totals"`
	ItemCount     int                `firestore:"itemCount"`
	CreatedAt     time.Time          `firestore:"createdAt"`
	UpdatedAt     time.Time          `firestore:"updatedAt"`
	DeactivatedAt *time.Time         `firestore:"deactivatedAt,omitempty"`
}

type cartItemDocument struct {
	ProductID string    `firestore:"productId"`
	Variant   string    `firestore:"variant,omitempty"`
	Name      string    `firestore:"name"`
	Slug      string    `firestore:"slug,omitempty"`
	Image     string    `firestore:"image,omitempty"`
	Quantity  int       `firestore:"quantity"`
	UnitPrice string    `firestore:"unitPrice"`
	ListPrice string    `firestore:"listPrice,omitempty"`
	AddedAt   time.Time `firestore:"addedAt"`
}

type pricingDocument struct {
	Subtotal     string `firestore:"subtotal"`
	Discount     string `firestore:"discount"`
	ShippingCost string `firestore:"shippingCost"`
	Tax          string `firestore:"tax"`
	Total        string `firestore:"total"`
}

type addressDocument struct {
	FirstName  string `firestore:"firstName"`
	LastName   string `firestore:"lastName"`
	Street     string `firestore:"street"`
	City       string `firestore:"city"`
	State      string `firestore:"state"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country,omitempty"`
	Phone      string `firestore:"phone"`
	Email      string `firestore:"email"`
}

type orderItemDocument struct {
	ProductID     string `firestore:"productId"`
	Variant       string `firestore:"variant,omitempty"`
	Name          string `firestore:"name"`
	Slug          string `firestore:"slug,omitempty"`
	Image         string `firestore:"image,omitempty"`
	Quantity      int    `firestore:"quantity"`
	UnitPrice     string `firestore:"unitPrice"`
	DiscountPrice string `firestore:"discountPrice,omitempty"`
	TotalPrice    string `firestore:"totalPrice"`
}

type paymentDocument struct {
	Provider         string     `firestore:"provider,omitempty"`
	GatewayOrderID   string     `firestore:"gatewayOrderId,omitempty"`
	GatewayPaymentID string     `firestore:"gatewayPaymentId,omitempty"`
	GatewaySignature string     `firestore:"gatewaySignature,omitempty"`
	TransactionID    string     `firestore:"transactionId,omitempty"`
	PaidAt           *time.Time `firestore:"paidAt,omitempty"`
}

type timelineDocument struct {
	Status    string            `firestore:"status"`
	Message   string            `firestore:"message"`
	Actor     string            `firestore:"actor"`
	ActorID   string            `firestore:"actorId,omitempty"`
	Metadata  map[string]string `firestore:"metadata,omitempty"`
	Timestamp time.Time         `firestore:"timestamp"`
}

type shippingDocument struct {
	Method            string     `firestore:"method,omitempty"`
	Cost              string     `firestore:"cost"`
	TrackingNumber    string     `firestore:"trackingNumber,omitempty"`
	Courier           string     `firestore:"courier,omitempty"`
	ShippedAt         *time.Time `firestore:"shippedAt,omitempty"`
	EstimatedDelivery *time.Time `firestore:"estimatedDelivery,omitempty"`
	DeliveredAt       *time.Time `firestore:"deliveredAt,omitempty"`
}

type refundDocument struct {
	Amount     string    `firestore:"amount"`
	Reason     string    `firestore:"reason,omitempty"`
	GatewayRef string    `firestore:"gatewayRef,omitempty"`
	RefundedAt time.Time `firestore:"refundedAt"`
}

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	UserID          string              `firestore:"userId"`
	Email           string              `firestore:"email"`
	Currency        string              `firestore:"currency"`
	Items           []orderItemDocument `firestore:"items"`
	ShippingAddress addressDocument     `firestore:"shippingAddress"`
	BillingAddress  addressDocument     `firestore:"billingAddress"`
	OrderStatus     string              `firestore:"orderStatus"`
	PaymentStatus   string              `firestore:"paymentStatus"`
	PaymentMethod   string              `firestore:"paymentMethod,omitempty"`
	Payment         paymentDocument     `firestore:"payment"`
	Pricing         pricingDocument     `firestore:"pricing"`
	Shipping        shippingDocument    `firestore:"shipping"`
	Notes           string              `firestore:"notes,omitempty"`
	Timeline        []timelineDocument  `firestore:"timeline"`
	Refund          *refundDocument     `firestore:"refund,omitempty"`
	CartID          string              `firestore:"cartId,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
}

type orderNumberDocument struct {
	OrderID   string    `firestore:"orderId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type productDocument struct {
	Name      string   `firestore:"name"`
	Slug      string   `firestore:"slug"`
	Image     string   `firestore:"image,omitempty"`
	Price     string   `firestore:"price"`
	SalePrice string   `firestore:"salePrice,omitempty"`
	Variants  []string `firestore:"variants,omitempty"`
	Active    bool     `firestore:"active"`
}

func newCartDocument(cart domain.Cart) cartDocument {
	doc := cartDocument{
		CartID:    cart.ID,
		UserID:    cart.UserID,
		Items:     make([]cartItemDocument, 0, len(cart.Items)),
		Active:    cart.Active,
		ExpiresAt: cart.ExpiresAt.UTC(),
		Totals:    newPricingDocument(cart.Totals),
		ItemCount: cart.ItemCount,
		CreatedAt: cart.CreatedAt.UTC(),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Name:      item.Name,
			Slug:      item.Slug,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
			ListPrice: optionalAmount(item.ListPrice),
			AddedAt:   item.AddedAt.UTC(),
		})
	}
	return doc
}

func (d cartDocument) toDomain() (domain.Cart, error) {
	cart := domain.Cart{
		ID:        d.CartID,
		UserID:    d.UserID,
		Items:     make([]domain.CartItem, 0, len(d.Items)),
		Active:    d.Active,
		ExpiresAt: d.ExpiresAt,
		ItemCount: d.ItemCount,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	totals, err := d.Totals.toDomain()
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Totals = totals
	for _, item := range d.Items {
		unit, err := parseAmount(item.UnitPrice)
		if err != nil {
			return domain.Cart{}, err
		}
		list, err := parseOptionalAmount(item.ListPrice)
		if err != nil {
			return domain.Cart{}, err
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Name:      item.Name,
			Slug:      item.Slug,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			ListPrice: list,
			AddedAt:   item.AddedAt,
		})
	}
	return cart, nil
}

func newPricingDocument(p domain.Pricing) pricingDocument {
	return pricingDocument{
		Subtotal:     p.Subtotal.String(),
		Discount:     p.Discount.String(),
		ShippingCost: p.ShippingCost.String(),
		Tax:          p.Tax.String(),
		Total:        p.Total.String(),
	}
}

func (d pricingDocument) toDomain() (domain.Pricing, error) {
	var (
		p   domain.Pricing
		err error
	)
	fields := []struct {
		raw    string
		target *decimal.Decimal
	}{
		{d.Subtotal, &p.Subtotal},
		{d.Discount, &p.Discount},
		{d.ShippingCost, &p.ShippingCost},
		{d.Tax, &p.Tax},
		{d.Total, &p.Total},
	}
	for _, f := range fields {
		if *f.target, err = parseAmount(f.raw); err != nil {
			return domain.Pricing{}, err
		}
	}
	return p, nil
}

func newAddressDocument(a domain.Address) addressDocument {
	return addressDocument(a)
}

func newOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Email:           order.Email,
		Currency:        order.Currency,
		Items:           make([]orderItemDocument, 0, len(order.Items)),
		ShippingAddress: newAddressDocument(order.ShippingAddress),
		BillingAddress:  newAddressDocument(order.BillingAddress),
		OrderStatus:     string(order.OrderStatus),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   order.PaymentMethod,
		Payment:         paymentDocument(order.Payment),
		Pricing:         newPricingDocument(order.Pricing),
		Shipping: shippingDocument{
			Method:            order.Shipping.Method,
			Cost:              order.Shipping.Cost.String(),
			TrackingNumber:    order.Shipping.TrackingNumber,
			Courier:           order.Shipping.Courier,
			ShippedAt:         order.Shipping.ShippedAt,
			EstimatedDelivery: order.Shipping.EstimatedDelivery,
			DeliveredAt:       order.Shipping.DeliveredAt,
		},
		Notes:     order.Notes,
		Timeline:  make([]timelineDocument, 0, len(order.Timeline)),
		CartID:    order.CartID,
		CreatedAt: order.CreatedAt.UTC(),
		UpdatedAt: order.UpdatedAt.UTC(),
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID:     item.ProductID,
			Variant:       item.Variant,
			Name:          item.Name,
			Slug:          item.Slug,
			Image:         item.Image,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice.String(),
			DiscountPrice: optionalAmount(item.DiscountPrice),
			TotalPrice:    item.TotalPrice.String(),
		})
	}
	for _, entry := range order.Timeline {
		doc.Timeline = append(doc.Timeline, timelineDocument{
			Status:    entry.Status,
			Message:   entry.Message,
			Actor:     string(entry.Actor),
			ActorID:   entry.ActorID,
			Metadata:  entry.Metadata,
			Timestamp: entry.Timestamp.UTC(),
		})
	}
	if order.Refund != nil {
		doc.Refund = &refundDocument{
			Amount:     order.Refund.Amount.String(),
			Reason:     order.Refund.Reason,
			GatewayRef: order.Refund.GatewayRef,
			RefundedAt: order.Refund.RefundedAt.UTC(),
		}
	}
	return doc
}

func (d orderDocument) toDomain(id string) (domain.Order, error) {
	order := domain.Order{
		ID:              id,
		OrderNumber:     d.OrderNumber,
		UserID:          d.UserID,
		Email:           d.Email,
		Currency:        d.Currency,
		Items:           make([]domain.OrderItem, 0, len(d.Items)),
		ShippingAddress: domain.Address(d.ShippingAddress),
		BillingAddress:  domain.Address(d.BillingAddress),
		OrderStatus:     domain.OrderStatus(d.OrderStatus),
		PaymentStatus:   domain.PaymentStatus(d.PaymentStatus),
		PaymentMethod:   d.PaymentMethod,
		Payment:         domain.PaymentDetails(d.Payment),
		Shipping: domain.ShippingInfo{
			Method:            d.Shipping.Method,
			TrackingNumber:    d.Shipping.TrackingNumber,
			Courier:           d.Shipping.Courier,
			ShippedAt:         d.Shipping.ShippedAt,
			EstimatedDelivery: d.Shipping.EstimatedDelivery,
			DeliveredAt:       d.Shipping.DeliveredAt,
		},
		Notes:     d.Notes,
		Timeline:  make([]domain.TimelineEntry, 0, len(d.Timeline)),
		CartID:    d.CartID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	pricing, err := d.Pricing.toDomain()
	if err != nil {
		return domain.Order{}, err
	}
	order.Pricing = pricing
	if order.Shipping.Cost, err = parseAmount(d.Shipping.Cost); err != nil {
		return domain.Order{}, err
	}
	for _, item := range d.Items {
		unit, err := parseAmount(item.UnitPrice)
		if err != nil {
			return domain.Order{}, err
		}
		discount, err := parseOptionalAmount(item.DiscountPrice)
		if err != nil {
			return domain.Order{}, err
		}
		total, err := parseAmount(item.TotalPrice)
		if err != nil {
			return domain.Order{}, err
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:     item.ProductID,
			Variant:       item.Variant,
			Name:          item.Name,
			Slug:          item.Slug,
			Image:         item.Image,
			Quantity:      item.Quantity,
			UnitPrice:     unit,
			DiscountPrice: discount,
			TotalPrice:    total,
		})
	}
	for _, entry := range d.Timeline {
		order.Timeline = append(order.Timeline, domain.TimelineEntry{
			Status:    entry.Status,
			Message:   entry.Message,
			Actor:     domain.TimelineActor(entry.Actor),
			ActorID:   entry.ActorID,
			Metadata:  entry.Metadata,
			Timestamp: entry.Timestamp,
		})
	}
	if d.Refund != nil {
		amount, err := parseAmount(d.Refund.Amount)
		if err != nil {
			return domain.Order{}, err
		}
		order.Refund = &domain.Refund{
			Amount:     amount,
			Reason:     d.Refund.Reason,
			GatewayRef: d.Refund.GatewayRef,
			RefundedAt: d.Refund.RefundedAt,
		}
	}
	return order, nil
}

func (d productDocument) toDomain(id string) (domain.Product, error) {
	price, err := parseAmount(d.Price)
	if err != nil {
		return domain.Product{}, err
	}
	sale, err := parseOptionalAmount(d.SalePrice)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:        id,
		Name:      d.Name,
		Slug:      d.Slug,
		Image:     d.Image,
		Price:     price,
		SalePrice: sale,
		Variants:  append([]string(nil), d.Variants...),
		Active:    d.Active,
	}, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("firestore: invalid amount %q: %w", raw, err)
	}
	return value, nil
}

func parseOptionalAmount(raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := parseAmount(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func optionalAmount(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return value.String()
}
