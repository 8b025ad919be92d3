package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

func withService(req *http.Request, email string) *http.Request {
	ctx := auth.WithServiceIdentity(req.Context(), &auth.ServiceIdentity{Subject: "1234567890", Email: email, Issuer: "https://accounts.google.com"})
	return req.WithContext(ctx)
}

func TestFulfillmentHandlersShipment(t *testing.T) {
	var got services.MarkShippedCommand
	orders := &stubOrderService{
		shipFunc: func(_ context.Context, cmd services.MarkShippedCommand) (domain.Order, error) {
			got = cmd
			return sampleOrder(domain.OrderStatusShipped, domain.PaymentStatusPaid), nil
		},
	}
	router := chi.NewRouter()
	router.Route("/internal", NewFulfillmentHandlers(orders).Routes)

	req := withService(httptest.NewRequest(http.MethodPost, "/internal/fulfillment/orders/order-1/shipment", strings.NewReader(`{"trackingNumber":"TRK9","courier":"Delhivery"}`)), "courier@ukiyo.iam.gserviceaccount.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.OrderID != "order-1" || got.TrackingNumber != "TRK9" || got.Actor != domain.ActorSystem || got.ActorID != "courier@ukiyo.iam.gserviceaccount.com" {
		t.Fatalf("unexpected command %+v", got)
	}
}

func TestFulfillmentHandlersDeliveryBeforeShipment(t *testing.T) {
	orders := &stubOrderService{
		deliverFunc: func(context.Context, services.MarkDeliveredCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: confirmed -> delivered", services.ErrInvalidTransition)
		},
	}
	router := chi.NewRouter()
	router.Route("/internal", NewFulfillmentHandlers(orders).Routes)

	req := withService(httptest.NewRequest(http.MethodPost, "/internal/fulfillment/orders/order-1/delivery", nil), "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["code"] != "INVALID_STATUS_TRANSITION" {
		t.Fatalf("unexpected code %v", body["code"])
	}
}

func TestCallerSubjectFallsBackToSubject(t *testing.T) {
	req := withService(httptest.NewRequest(http.MethodPost, "/", nil), "")
	if got := callerSubject(req); got != "1234567890" {
		t.Fatalf("expected subject fallback, got %q", got)
	}
	if got := callerSubject(httptest.NewRequest(http.MethodPost, "/", nil)); got != "" {
		t.Fatalf("expected empty caller without identity, got %q", got)
	}
}
