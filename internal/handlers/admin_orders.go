package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

const maxAdminOrderBodySize = 8 * 1024

// AdminOrderHandlers exposes order administration to staff and admins. Refunds are admin only.
type AdminOrderHandlers struct {
	authn    *auth.Authenticator
	orders   services.OrderService
	payments services.PaymentService
}

// NewAdminOrderHandlers constructs the admin order handlers.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.OrderService, payments services.PaymentService) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		authn:    authn,
		orders:   orders,
		payments: payments,
	}
}

// Routes registers /admin/orders endpoints on the admin group.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/orders", func(rt chi.Router) {
		if h.authn != nil {
			rt.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleStaff))
		}
		rt.Get("/", h.listOrders)
		rt.Get("/{orderId}", h.getOrder)
		rt.Post("/{orderId}/status", h.updateStatus)
		rt.Post("/{orderId}/ship", h.shipOrder)
		rt.Post("/{orderId}/deliver", h.deliverOrder)
		rt.Post("/{orderId}/refund", h.refundOrder)
	})
}

type adminStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=processing cancelled"`
	Message string `json:"message" validate:"max=500"`
}

type adminShipRequest struct {
	TrackingNumber    string     `json:"trackingNumber" validate:"required,max=64"`
	Courier           string     `json:"courier" validate:"required,max=64"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

type adminRefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" validate:"required,max=500"`
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.begin(w, r); !ok {
		return
	}
	params, ok := parsePaging(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.orders.List(ctx, services.OrderListFilter{
		UserID: strings.TrimSpace(query.Get("userId")),
		Status: strings.TrimSpace(query.Get("status")),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(storeModeFrom(ctx), page))
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.begin(w, r); !ok {
		return
	}
	order, err := h.orders.Get(ctx, chi.URLParam(r, "orderId"))
	h.respond(w, r, order, err)
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req adminStatusRequest
	if !decodeRequest(w, r, maxAdminOrderBodySize, false, &req) {
		return
	}
	order, err := h.orders.UpdateStatus(ctx, services.OrderStatusCommand{
		OrderID: chi.URLParam(r, "orderId"),
		Status:  domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Message: strings.TrimSpace(req.Message),
		Actor:   domain.ActorAdmin,
		ActorID: identity.UID,
	})
	h.respond(w, r, order, err)
}

func (h *AdminOrderHandlers) shipOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req adminShipRequest
	if !decodeRequest(w, r, maxAdminOrderBodySize, false, &req) {
		return
	}
	order, err := h.orders.MarkShipped(ctx, services.MarkShippedCommand{
		OrderID:           chi.URLParam(r, "orderId"),
		TrackingNumber:    strings.TrimSpace(req.TrackingNumber),
		Courier:           strings.TrimSpace(req.Courier),
		EstimatedDelivery: req.EstimatedDelivery,
		Actor:             domain.ActorAdmin,
		ActorID:           identity.UID,
	})
	h.respond(w, r, order, err)
}

func (h *AdminOrderHandlers) deliverOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	order, err := h.orders.MarkDelivered(ctx, services.MarkDeliveredCommand{
		OrderID: chi.URLParam(r, "orderId"),
		Actor:   domain.ActorAdmin,
		ActorID: identity.UID,
	})
	h.respond(w, r, order, err)
}

func (h *AdminOrderHandlers) refundOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	if !identity.HasRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeForbidden, "refunds require the admin role", http.StatusForbidden))
		return
	}
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "payment service is unavailable", http.StatusServiceUnavailable))
		return
	}
	var req adminRefundRequest
	if !decodeRequest(w, r, maxAdminOrderBodySize, false, &req) {
		return
	}
	order, err := h.payments.Refund(ctx, services.RefundCommand{
		OrderID: chi.URLParam(r, "orderId"),
		Amount:  req.Amount,
		Reason:  strings.TrimSpace(req.Reason),
		ActorID: identity.UID,
	})
	h.respond(w, r, order, err)
}

func (h *AdminOrderHandlers) begin(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	if h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeInternal, "order service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return nil, false
	}
	if !identity.HasAnyRole(auth.RoleAdmin, auth.RoleStaff) {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeForbidden, "insufficient permissions", http.StatusForbidden))
		return nil, false
	}
	requestctx.Annotate(r.Context(), "orderId", chi.URLParam(r, "orderId"))
	return identity, true
}

func (h *AdminOrderHandlers) respond(w http.ResponseWriter, r *http.Request, order domain.Order, err error) {
	ctx := r.Context()
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
