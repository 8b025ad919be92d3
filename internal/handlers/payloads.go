package handlers

import (
	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
)

type pricingPayload struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

func buildPricingPayload(p domain.Pricing) pricingPayload {
	return pricingPayload{
		Subtotal:     p.Subtotal,
		Discount:     p.Discount,
		ShippingCost: p.ShippingCost,
		Tax:          p.Tax,
		Total:        p.Total,
	}
}

type cartItemPayload struct {
	ProductID string           `json:"productId"`
	Variant   string           `json:"variant,omitempty"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug,omitempty"`
	Image     string           `json:"image,omitempty"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	ListPrice *decimal.Decimal `json:"listPrice,omitempty"`
	LineTotal decimal.Decimal  `json:"lineTotal"`
	AddedAt   string           `json:"addedAt,omitempty"`
}

type cartPayload struct {
	ID        string            `json:"id"`
	Items     []cartItemPayload `json:"items"`
	ItemCount int               `json:"itemCount"`
	Totals    pricingPayload    `json:"totals"`
	ExpiresAt string            `json:"expiresAt,omitempty"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

type cartResponse struct {
	Success   bool        `json:"success"`
	StoreMode string      `json:"storeMode"`
	Cart      cartPayload `json:"cart"`
}

func buildCartPayload(cart domain.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Name:      item.Name,
			Slug:      item.Slug,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
			ListPrice: item.ListPrice,
			LineTotal: item.LineTotal(),
			AddedAt:   formatTime(item.AddedAt),
		})
	}
	return cartPayload{
		ID:        cart.ID,
		Items:     items,
		ItemCount: cart.ItemCount,
		Totals:    buildPricingPayload(cart.Totals),
		ExpiresAt: formatTime(cart.ExpiresAt),
		UpdatedAt: formatTime(cart.UpdatedAt),
	}
}

type addressPayload struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
}

func (a addressPayload) toDomain() domain.Address {
	return domain.Address{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		Email:      a.Email,
	}
}

func buildAddressPayload(a domain.Address) addressPayload {
	return addressPayload{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		Email:      a.Email,
	}
}

type orderItemPayload struct {
	ProductID     string           `json:"productId"`
	Variant       string           `json:"variant,omitempty"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug,omitempty"`
	Image         string           `json:"image,omitempty"`
	Quantity      int              `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	TotalPrice    decimal.Decimal  `json:"totalPrice"`
}

type paymentDetailsPayload struct {
	Provider         string `json:"provider,omitempty"`
	GatewayOrderID   string `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`
	TransactionID    string `json:"transactionId,omitempty"`
	PaidAt           string `json:"paidAt,omitempty"`
}

type shippingPayload struct {
	Method            string          `json:"method,omitempty"`
	Cost              decimal.Decimal `json:"cost"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	Courier           string          `json:"courier,omitempty"`
	ShippedAt         string          `json:"shippedAt,omitempty"`
	EstimatedDelivery string          `json:"estimatedDelivery,omitempty"`
	DeliveredAt       string          `json:"deliveredAt,omitempty"`
}

type timelinePayload struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Actor     string            `json:"actor"`
	ActorID   string            `json:"actorId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type refundPayload struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	GatewayRef string          `json:"gatewayRef,omitempty"`
	RefundedAt string          `json:"refundedAt"`
}

type orderPayload struct {
	ID              string                `json:"id"`
	OrderNumber     string                `json:"orderNumber"`
	UserID          string                `json:"userId"`
	Email           string                `json:"email"`
	Currency        string                `json:"currency"`
	Items           []orderItemPayload    `json:"items"`
	ShippingAddress addressPayload        `json:"shippingAddress"`
	BillingAddress  addressPayload        `json:"billingAddress"`
	OrderStatus     string                `json:"orderStatus"`
	PaymentStatus   string                `json:"paymentStatus"`
	PaymentMethod   string                `json:"paymentMethod"`
	PaymentDetails  paymentDetailsPayload `json:"paymentDetails"`
	Pricing         pricingPayload        `json:"pricing"`
	Shipping        shippingPayload       `json:"shipping"`
	Notes           string                `json:"notes,omitempty"`
	Timeline        []timelinePayload     `json:"timeline"`
	Refund          *refundPayload        `json:"refund,omitempty"`
	CreatedAt       string                `json:"createdAt"`
	UpdatedAt       string                `json:"updatedAt"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID:     item.ProductID,
			Variant:       item.Variant,
			Name:          item.Name,
			Slug:          item.Slug,
			Image:         item.Image,
			Quantity:      item.Quantity,
			Price:         item.UnitPrice,
			DiscountPrice: item.DiscountPrice,
			TotalPrice:    item.TotalPrice,
		})
	}
	timeline := make([]timelinePayload, 0, len(order.Timeline))
	for _, entry := range order.Timeline {
		timeline = append(timeline, timelinePayload{
			Status:    entry.Status,
			Message:   entry.Message,
			Actor:     string(entry.Actor),
			ActorID:   entry.ActorID,
			Metadata:  entry.Metadata,
			Timestamp: formatTime(entry.Timestamp),
		})
	}
	payload := orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Email:           order.Email,
		Currency:        order.Currency,
		Items:           items,
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		BillingAddress:  buildAddressPayload(order.BillingAddress),
		OrderStatus:     string(order.OrderStatus),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   order.PaymentMethod,
		PaymentDetails: paymentDetailsPayload{
			Provider:         order.Payment.Provider,
			GatewayOrderID:   order.Payment.GatewayOrderID,
			GatewayPaymentID: order.Payment.GatewayPaymentID,
			TransactionID:    order.Payment.TransactionID,
			PaidAt:           formatTimePtr(order.Payment.PaidAt),
		},
		Pricing: buildPricingPayload(order.Pricing),
		Shipping: shippingPayload{
			Method:            order.Shipping.Method,
			Cost:              order.Shipping.Cost,
			TrackingNumber:    order.Shipping.TrackingNumber,
			Courier:           order.Shipping.Courier,
			ShippedAt:         formatTimePtr(order.Shipping.ShippedAt),
			EstimatedDelivery: formatTimePtr(order.Shipping.EstimatedDelivery),
			DeliveredAt:       formatTimePtr(order.Shipping.DeliveredAt),
		},
		Notes:     order.Notes,
		Timeline:  timeline,
		CreatedAt: formatTime(order.CreatedAt),
		UpdatedAt: formatTime(order.UpdatedAt),
	}
	if order.Refund != nil {
		payload.Refund = &refundPayload{
			Amount:     order.Refund.Amount,
			Reason:     order.Refund.Reason,
			GatewayRef: order.Refund.GatewayRef,
			RefundedAt: formatTime(order.Refund.RefundedAt),
		}
	}
	return payload
}

type intentPayload struct {
	Provider       string `json:"provider"`
	GatewayOrderID string `json:"gatewayOrderId"`
	KeyID          string `json:"keyId,omitempty"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt,omitempty"`
}

func buildIntentPayload(intent payments.Intent) intentPayload {
	return intentPayload{
		Provider:       intent.Provider,
		GatewayOrderID: intent.GatewayOrderID,
		KeyID:          intent.KeyID,
		ClientSecret:   intent.ClientSecret,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		Receipt:        intent.Receipt,
	}
}

type orderResponse struct {
	Success   bool         `json:"success"`
	StoreMode string       `json:"storeMode"`
	Message   string       `json:"message,omitempty"`
	Order     orderPayload `json:"order"`
}

type paginationPayload struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
}

type orderListResponse struct {
	Success    bool              `json:"success"`
	StoreMode  string            `json:"storeMode"`
	Orders     []orderPayload    `json:"orders"`
	Pagination paginationPayload `json:"pagination"`
}

func buildOrderListResponse(storeMode string, page domain.Page[domain.Order]) orderListResponse {
	orders := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		orders = append(orders, buildOrderPayload(order))
	}
	return orderListResponse{
		Success:   true,
		StoreMode: storeMode,
		Orders:    orders,
		Pagination: paginationPayload{
			Page:    page.Page,
			Limit:   page.Limit,
			Total:   page.Total,
			Pages:   page.Pages(),
			HasNext: page.HasNext(),
		},
	}
}
