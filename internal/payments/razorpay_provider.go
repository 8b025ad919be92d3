package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// ProviderRazorpay is the registration key of the Razorpay adapter.
const ProviderRazorpay = "razorpay"

const defaultGatewayTimeout = 10 * time.Second

// RazorpayLogger defines the logging contract for Razorpay provider operations.
type RazorpayLogger func(ctx context.Context, event string, fields map[string]any)

type razorpayOrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayPaymentAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayClients struct {
	orders   razorpayOrderAPI
	payments razorpayPaymentAPI
}

// RazorpayProviderConfig configures the RazorpayProvider.
type RazorpayProviderConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
	Logger        RazorpayLogger
	Clients       *razorpayClients
}

// RazorpayProvider implements Provider using Razorpay Orders.
// The client SDK is synchronous, so every call is bounded by the configured timeout.
type RazorpayProvider struct {
	api           razorpayClients
	keyID         string
	keySecret     string
	webhookSecret string
	timeout       time.Duration
	logger        RazorpayLogger
}

// NewRazorpayProvider constructs a Razorpay Provider using the given configuration.
func NewRazorpayProvider(cfg RazorpayProviderConfig) (*RazorpayProvider, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errors.New("razorpay: key secret is required")
	}
	if keyID == "" && cfg.Clients == nil {
		return nil, errors.New("razorpay: key id is required")
	}

	var clients razorpayClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		rc := razorpay.NewClient(keyID, keySecret)
		clients = razorpayClients{
			orders:   rc.Order,
			payments: rc.Payment,
		}
	}
	if clients.orders == nil || clients.payments == nil {
		return nil, errors.New("razorpay: incomplete client configuration")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &RazorpayProvider{
		api:           clients,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		timeout:       timeout,
		logger:        logger,
	}, nil
}

// CreateIntent creates a Razorpay order carrying the order number as receipt.
func (p *RazorpayProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if p == nil {
		return Intent{}, errors.New("razorpay: provider is nil")
	}
	if req.Amount <= 0 {
		return Intent{}, &GatewayError{Provider: ProviderRazorpay, Op: "create order", Rejected: true, Err: fmt.Errorf("amount must be positive, got %d", req.Amount)}
	}

	data := map[string]interface{}{
		"amount":          req.Amount,
		"currency":        strings.ToUpper(strings.TrimSpace(req.Currency)),
		"receipt":         req.OrderNumber,
		"payment_capture": 1,
	}
	notes := map[string]interface{}{"orderId": req.OrderID}
	for k, v := range req.Metadata {
		notes[k] = v
	}
	data["notes"] = notes

	var headers map[string]string
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		headers = map[string]string{"X-Idempotency-Key": key}
	}

	resp, err := p.call(ctx, func() (map[string]interface{}, error) {
		return p.api.orders.Create(data, headers)
	})
	if err != nil {
		return Intent{}, p.wrap("create order", err)
	}

	intent := Intent{
		Provider:       ProviderRazorpay,
		GatewayOrderID: stringField(resp, "id"),
		KeyID:          p.keyID,
		Amount:         int64Field(resp, "amount"),
		Currency:       strings.ToUpper(stringField(resp, "currency")),
		Receipt:        stringField(resp, "receipt"),
		Status:         StatusPending,
	}
	if intent.GatewayOrderID == "" {
		return Intent{}, &GatewayError{Provider: ProviderRazorpay, Op: "create order", Err: errors.New("response missing order id")}
	}
	if intent.Amount == 0 {
		intent.Amount = req.Amount
	}
	if intent.Receipt == "" {
		intent.Receipt = req.OrderNumber
	}

	p.logger(ctx, "payments.razorpay.order.created", map[string]any{
		"gatewayOrderId": intent.GatewayOrderID,
		"receipt":        intent.Receipt,
		"amount":         intent.Amount,
	})
	return intent, nil
}

// VerifyPayment checks the checkout signature HMAC(keySecret, orderId|paymentId).
func (p *RazorpayProvider) VerifyPayment(ctx context.Context, req VerifyRequest) error {
	if p == nil {
		return errors.New("razorpay: provider is nil")
	}
	payload := PaymentSignaturePayload(req.GatewayOrderID, req.GatewayPaymentID)
	if !VerifySignature(p.keySecret, payload, req.Signature) {
		p.logger(ctx, "payments.razorpay.signature.invalid", map[string]any{
			"gatewayOrderId":   req.GatewayOrderID,
			"gatewayPaymentId": req.GatewayPaymentID,
		})
		return ErrSignatureMismatch
	}
	return nil
}

// Refund refunds a captured payment. A nil amount refunds the full captured amount.
func (p *RazorpayProvider) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if p == nil {
		return RefundResult{}, errors.New("razorpay: provider is nil")
	}
	paymentID := strings.TrimSpace(req.GatewayPaymentID)
	if paymentID == "" {
		return RefundResult{}, &GatewayError{Provider: ProviderRazorpay, Op: "refund", Rejected: true, Err: errors.New("payment id is required")}
	}
	amount := 0
	if req.Amount != nil {
		amount = int(*req.Amount)
	}
	data := map[string]interface{}{}
	notes := map[string]interface{}{}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		notes["reason"] = reason
	}
	for k, v := range req.Metadata {
		notes[k] = v
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	resp, err := p.call(ctx, func() (map[string]interface{}, error) {
		return p.api.payments.Refund(paymentID, amount, data, nil)
	})
	if err != nil {
		return RefundResult{}, p.wrap("refund", err)
	}

	result := RefundResult{
		Provider: ProviderRazorpay,
		RefundID: stringField(resp, "id"),
		Amount:   int64Field(resp, "amount"),
		Status:   StatusRefunded,
	}
	if strings.EqualFold(stringField(resp, "status"), "failed") {
		result.Status = StatusFailed
	}
	p.logger(ctx, "payments.razorpay.payment.refunded", map[string]any{
		"gatewayPaymentId": paymentID,
		"refundId":         result.RefundID,
		"amount":           result.Amount,
	})
	return result, nil
}

type razorpayWebhook struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				Currency         string `json:"currency"`
				Status           string `json:"status"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook verifies X-Razorpay-Signature (HMAC of the raw body) and decodes payment events.
func (p *RazorpayProvider) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if p == nil {
		return WebhookEvent{}, errors.New("razorpay: provider is nil")
	}
	if !VerifySignature(p.webhookSecret, string(payload), signature) {
		return WebhookEvent{}, ErrSignatureMismatch
	}
	var body razorpayWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return WebhookEvent{}, fmt.Errorf("razorpay: decode webhook: %w", err)
	}
	entity := body.Payload.Payment.Entity
	event := WebhookEvent{
		ID:               fmt.Sprintf("%s:%s:%d", body.Event, entity.ID, body.CreatedAt),
		Provider:         ProviderRazorpay,
		RawType:          body.Event,
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		Amount:           entity.Amount,
		Currency:         strings.ToUpper(entity.Currency),
		Reason:           strings.TrimSpace(entity.ErrorDescription),
	}
	switch body.Event {
	case "payment.captured":
		event.Type = WebhookPaymentCaptured
	case "payment.failed":
		event.Type = WebhookPaymentFailed
	default:
		event.Type = WebhookIgnored
	}
	return event, nil
}

func (p *RazorpayProvider) call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		resp map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := fn()
		done <- result{resp: resp, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.resp, r.err
	}
}

func (p *RazorpayProvider) wrap(op string, err error) error {
	return &GatewayError{Provider: ProviderRazorpay, Op: op, Rejected: razorpayRejected(err), Err: err}
}

// razorpayRejected reports whether the SDK classified the failure as a bad request.
// The SDK surfaces its error kinds only as concrete types, so the type name is inspected.
func razorpayRejected(err error) bool {
	if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return strings.HasSuffix(fmt.Sprintf("%T", err), "BadRequestError")
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(m map[string]interface{}, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
