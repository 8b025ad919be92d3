package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// FulfillmentHandlers receives courier callbacks on the internal group. Authentication is the
// OIDC middleware installed through WithInternalMiddlewares.
type FulfillmentHandlers struct {
	orders services.OrderService
}

// NewFulfillmentHandlers constructs courier callback handlers.
func NewFulfillmentHandlers(orders services.OrderService) *FulfillmentHandlers {
	return &FulfillmentHandlers{orders: orders}
}

// Routes registers /internal/fulfillment endpoints.
func (h *FulfillmentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/fulfillment/orders/{orderId}/shipment", h.recordShipment)
	r.Post("/fulfillment/orders/{orderId}/delivery", h.recordDelivery)
}

type shipmentCallbackRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,max=64"`
	Courier        string `json:"courier" validate:"required,max=64"`
}

func (h *FulfillmentHandlers) recordShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	var req shipmentCallbackRequest
	if !decodeRequest(w, r, maxAdminOrderBodySize, false, &req) {
		return
	}
	order, err := h.orders.MarkShipped(ctx, services.MarkShippedCommand{
		OrderID:        chi.URLParam(r, "orderId"),
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		Courier:        strings.TrimSpace(req.Courier),
		Actor:          domain.ActorSystem,
		ActorID:        callerSubject(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Success: true, StoreMode: storeModeFrom(ctx), Order: buildOrderPayload(order)})
}

func (h *FulfillmentHandlers) recordDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	order, err := h.orders.MarkDelivered(ctx, services.MarkDeliveredCommand{
		OrderID: chi.URLParam(r, "orderId"),
		Actor:   domain.ActorSystem,
		ActorID: callerSubject(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Success: true, StoreMode: storeModeFrom(ctx), Order: buildOrderPayload(order)})
}

func (h *FulfillmentHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeInternal, "order service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	requestctx.Annotate(r.Context(), "orderId", chi.URLParam(r, "orderId"))
	return true
}

// callerSubject prefers the service account email over the opaque subject.
func callerSubject(r *http.Request) string {
	identity, ok := auth.ServiceIdentityFromContext(r.Context())
	if !ok || identity == nil {
		return ""
	}
	if email := strings.TrimSpace(identity.Email); email != "" {
		return email
	}
	return strings.TrimSpace(identity.Subject)
}
