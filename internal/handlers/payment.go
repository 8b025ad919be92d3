package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/pagination"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

const (
	maxCheckoutBodySize    = 16 * 1024
	defaultVerifyRateLimit = 20
	defaultVerifyWindow    = time.Minute
	idempotencyKeyHeader   = "Idempotency-Key"
)

// PaymentHandlers serves checkout, payment verification and the caller's order history.
type PaymentHandlers struct {
	authn         *auth.Authenticator
	checkout      services.CheckoutService
	payments      services.PaymentService
	orders        services.OrderService
	idempotency   func(http.Handler) http.Handler
	verifyLimiter *userLimiter
}

// PaymentOption customises PaymentHandlers.
type PaymentOption func(*PaymentHandlers)

// WithCheckoutIdempotency installs the middleware replaying create-order responses.
func WithCheckoutIdempotency(mw func(http.Handler) http.Handler) PaymentOption {
	return func(h *PaymentHandlers) {
		h.idempotency = mw
	}
}

// WithVerifyRateLimit bounds verify attempts per user. A non-positive limit disables it.
func WithVerifyRateLimit(limit int, window time.Duration, clock func() time.Time) PaymentOption {
	return func(h *PaymentHandlers) {
		h.verifyLimiter = newUserLimiter(limit, window, clock)
	}
}

// NewPaymentHandlers constructs handlers guarded by Firebase authentication.
func NewPaymentHandlers(authn *auth.Authenticator, checkout services.CheckoutService, payments services.PaymentService, orders services.OrderService, opts ...PaymentOption) *PaymentHandlers {
	h := &PaymentHandlers{
		authn:         authn,
		checkout:      checkout,
		payments:      payments,
		orders:        orders,
		verifyLimiter: newUserLimiter(defaultVerifyRateLimit, defaultVerifyWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /payment endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	create := r
	if h.idempotency != nil {
		create = r.With(h.idempotency)
	}
	create.Post("/create-order", h.createOrder)
	r.Post("/verify", h.verifyPayment)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderId}", h.getOrder)
}

type createOrderRequest struct {
	ShippingAddress addressPayload  `json:"shippingAddress" validate:"required"`
	BillingAddress  *addressPayload `json:"billingAddress" validate:"omitempty"`
	PaymentMethod   string          `json:"paymentMethod" validate:"max=32"`
	Provider        string          `json:"provider" validate:"omitempty,oneof=razorpay stripe"`
	Notes           string          `json:"notes" validate:"max=500"`
}

type createOrderResponse struct {
	Success       bool          `json:"success"`
	StoreMode     string        `json:"storeMode"`
	Order         orderPayload  `json:"order"`
	GatewayIntent intentPayload `json:"gatewayIntent"`
}

type verifyPaymentRequest struct {
	OrderID          string `json:"orderId" validate:"required"`
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

func (h *PaymentHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if !decodeRequest(w, r, maxCheckoutBodySize, false, &req) {
		return
	}

	cmd := services.CreateOrderCommand{
		UserID:            identity.UID,
		Email:             identity.Email,
		ShippingAddress:   req.ShippingAddress.toDomain(),
		PaymentMethod:     strings.TrimSpace(req.PaymentMethod),
		Notes:             req.Notes,
		PreferredProvider: strings.TrimSpace(req.Provider),
		IdempotencyKey:    strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
	}
	if req.BillingAddress != nil {
		billing := req.BillingAddress.toDomain()
		cmd.BillingAddress = &billing
	}

	result, err := h.checkout.CreateOrder(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	requestctx.Annotate(ctx, "orderId", result.Order.ID)
	writeJSONResponse(w, http.StatusCreated, createOrderResponse{
		Success:       true,
		StoreMode:     storeModeFrom(ctx),
		Order:         buildOrderPayload(result.Order),
		GatewayIntent: buildIntentPayload(result.Intent),
	})
}

func (h *PaymentHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "payment service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.verifyLimiter != nil && !h.verifyLimiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeRateLimited, "too many verification attempts; retry later", http.StatusTooManyRequests))
		return
	}
	var req verifyPaymentRequest
	if !decodeRequest(w, r, maxCheckoutBodySize, false, &req) {
		return
	}
	requestctx.Annotate(ctx, "orderId", strings.TrimSpace(req.OrderID))

	order, err := h.payments.Verify(ctx, services.VerifyPaymentCommand{
		UserID:           identity.UID,
		OrderID:          strings.TrimSpace(req.OrderID),
		GatewayOrderID:   strings.TrimSpace(req.GatewayOrderID),
		GatewayPaymentID: strings.TrimSpace(req.GatewayPaymentID),
		Signature:        strings.TrimSpace(req.Signature),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{
		Success:   true,
		StoreMode: storeModeFrom(ctx),
		Message:   "payment verified",
		Order:     buildOrderPayload(order),
	})
}

func (h *PaymentHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	params, ok := parsePaging(w, r)
	if !ok {
		return
	}
	page, err := h.orders.ListForUser(ctx, identity.UID, services.OrderListFilter{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(storeModeFrom(ctx), page))
}

func (h *PaymentHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeValidation, "order id is required", http.StatusBadRequest))
		return
	}
	order, err := h.orders.GetForUser(ctx, identity.UID, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{
		Success:   true,
		StoreMode: storeModeFrom(ctx),
		Order:     buildOrderPayload(order),
	})
}

func parsePaging(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	params, err := pagination.FromRequest(r)
	if err == nil {
		return params, true
	}
	msg := "invalid pagination parameters"
	switch {
	case errors.Is(err, pagination.ErrInvalidPage):
		msg = "page must be a positive integer"
	case errors.Is(err, pagination.ErrInvalidLimit):
		msg = "limit must be a positive integer"
	}
	httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeValidation, msg, http.StatusBadRequest))
	return pagination.Params{}, false
}
