package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

const maxWebhookBodySize = 64 * 1024

var webhookSignatureHeaders = map[string]string{
	payments.ProviderRazorpay: "X-Razorpay-Signature",
	payments.ProviderStripe:   "Stripe-Signature",
}

// PaymentWebhookHandlers accepts gateway notifications. Requests are authenticated by the
// provider signature over the raw body, never by user credentials.
type PaymentWebhookHandlers struct {
	payments services.PaymentService
}

// NewPaymentWebhookHandlers constructs webhook handlers.
func NewPaymentWebhookHandlers(payments services.PaymentService) *PaymentWebhookHandlers {
	return &PaymentWebhookHandlers{payments: payments}
}

// Routes registers /webhooks endpoints.
func (h *PaymentWebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/payments/{provider}", h.handlePayment)
}

type webhookAckResponse struct {
	Success  bool   `json:"success"`
	Received bool   `json:"received"`
	EventID  string `json:"eventId,omitempty"`
	Outcome  string `json:"outcome"`
}

func (h *PaymentWebhookHandlers) handlePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "payment service is unavailable", http.StatusServiceUnavailable))
		return
	}
	provider := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	header, ok := webhookSignatureHeaders[provider]
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNotFound, "unsupported payment provider", http.StatusNotFound))
		return
	}
	signature := strings.TrimSpace(r.Header.Get(header))
	if signature == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeSignatureInvalid, "missing webhook signature", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxWebhookBodySize)
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodePayloadTooLarge, "webhook payload too large", http.StatusRequestEntityTooLarge))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeValidation, err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.payments.HandleWebhook(ctx, services.WebhookCommand{
		Provider:  provider,
		Payload:   body,
		Signature: signature,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	requestctx.Annotate(ctx, "orderId", result.OrderID)
	requestctx.Logger(ctx).Info("payment webhook processed",
		zap.String("provider", provider),
		zap.String("eventId", result.EventID),
		zap.String("eventType", result.Type),
		zap.String("outcome", string(result.Outcome)),
	)
	writeJSONResponse(w, http.StatusOK, webhookAckResponse{
		Success:  true,
		Received: true,
		EventID:  result.EventID,
		Outcome:  string(result.Outcome),
	})
}
