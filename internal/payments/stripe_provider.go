package payments

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ProviderStripe is the registration key of the Stripe adapter.
const ProviderStripe = "stripe"

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClients struct {
	intents stripePaymentIntentAPI
	refunds stripeRefundAPI
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey        string
	AccountID     string
	WebhookSecret string
	Backends      *stripe.Backends
	Logger        StripeLogger
	Clients       *stripeClients
}

// StripeProvider implements the Provider interface using Payment Intents.
// The gateway order id and the gateway payment id are both the intent id; the
// client secret plays the role of the completion signature.
type StripeProvider struct {
	api           stripeClients
	account       string
	webhookSecret string
	logger        StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{
			intents: sc.PaymentIntents,
			refunds: sc.Refunds,
		}
	}
	if clients.intents == nil || clients.refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		api:           clients,
		account:       strings.TrimSpace(cfg.AccountID),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logger,
	}, nil
}

// CreateIntent creates a Stripe Payment Intent for the order total.
func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if p == nil {
		return Intent{}, errors.New("stripe: provider is nil")
	}
	if req.Amount <= 0 {
		return Intent{}, &GatewayError{Provider: ProviderStripe, Op: "create payment intent", Rejected: true, Err: fmt.Errorf("amount must be positive, got %d", req.Amount)}
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(strings.TrimSpace(req.Currency))),
		Description: stripe.String(req.OrderNumber),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	params.AddMetadata("orderId", req.OrderID)
	params.AddMetadata("orderNumber", req.OrderNumber)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := p.api.intents.New(params)
	if err != nil {
		return Intent{}, wrapStripe("create payment intent", err)
	}

	p.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
	})

	return Intent{
		Provider:       ProviderStripe,
		GatewayOrderID: intent.ID,
		ClientSecret:   intent.ClientSecret,
		Amount:         intent.Amount,
		Currency:       strings.ToUpper(string(intent.Currency)),
		Receipt:        req.OrderNumber,
		Status:         stripeStatus(intent.Status),
	}, nil
}

// VerifyPayment loads the intent and requires it to have succeeded. The Signature field carries
// the intent's client secret, which the browser already holds, so matching it only binds the
// request to the intent. The server-side status read is the authenticity check.
func (p *StripeProvider) VerifyPayment(ctx context.Context, req VerifyRequest) error {
	if p == nil {
		return errors.New("stripe: provider is nil")
	}
	if req.GatewayPaymentID != "" && req.GatewayPaymentID != req.GatewayOrderID {
		return ErrSignatureMismatch
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	intent, err := p.api.intents.Get(req.GatewayOrderID, params)
	if err != nil {
		return wrapStripe("get payment intent", err)
	}
	if subtle.ConstantTimeCompare([]byte(intent.ClientSecret), []byte(strings.TrimSpace(req.Signature))) != 1 {
		p.logger(ctx, "payments.stripe.signature.invalid", map[string]any{
			"paymentIntent": intent.ID,
		})
		return ErrSignatureMismatch
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return &GatewayError{Provider: ProviderStripe, Op: "verify payment intent", Rejected: true, Err: fmt.Errorf("payment intent status %q", intent.Status)}
	}
	return nil
}

// Refund creates a refund against the order's payment intent.
func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if p == nil {
		return RefundResult{}, errors.New("stripe: provider is nil")
	}
	intentID := defaultString(req.GatewayOrderID, req.GatewayPaymentID)
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	if req.Amount != nil {
		params.Amount = stripe.Int64(*req.Amount)
	}
	if reason := mapStripeRefundReason(req.Reason); reason != "" {
		params.Reason = stripe.String(reason)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	refund, err := p.api.refunds.New(params)
	if err != nil {
		return RefundResult{}, wrapStripe("refund payment intent", err)
	}
	p.logger(ctx, "payments.stripe.intent.refunded", map[string]any{
		"paymentIntent": intentID,
		"refundId":      refund.ID,
	})
	status := StatusRefunded
	switch refund.Status {
	case stripe.RefundStatusPending:
		status = StatusPending
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		status = StatusFailed
	}
	return RefundResult{
		Provider: ProviderStripe,
		RefundID: refund.ID,
		Amount:   refund.Amount,
		Status:   status,
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes payment intent events.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if p == nil {
		return WebhookEvent{}, errors.New("stripe: provider is nil")
	}
	if p.webhookSecret == "" {
		return WebhookEvent{}, ErrSignatureMismatch
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}

	event := WebhookEvent{
		ID:       evt.ID,
		Provider: ProviderStripe,
		RawType:  string(evt.Type),
		Type:     WebhookIgnored,
	}
	switch evt.Type {
	case "payment_intent.succeeded":
		event.Type = WebhookPaymentCaptured
	case "payment_intent.payment_failed":
		event.Type = WebhookPaymentFailed
	default:
		return event, nil
	}
	if evt.Data == nil {
		return WebhookEvent{}, errors.New("stripe: webhook missing data")
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: decode payment intent: %w", err)
	}
	event.GatewayOrderID = intent.ID
	event.GatewayPaymentID = intent.ID
	event.Amount = intent.Amount
	event.Currency = strings.ToUpper(string(intent.Currency))
	if intent.LastPaymentError != nil {
		event.Reason = intent.LastPaymentError.Msg
	}
	return event, nil
}

func stripeStatus(status stripe.PaymentIntentStatus) Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}

func wrapStripe(op string, err error) error {
	rejected := false
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		rejected = stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 && stripeErr.HTTPStatusCode != 429
	}
	return &GatewayError{Provider: ProviderStripe, Op: op, Rejected: rejected, Err: err}
}

func mapStripeRefundReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case string(stripe.RefundReasonDuplicate):
		return string(stripe.RefundReasonDuplicate)
	case string(stripe.RefundReasonFraudulent):
		return string(stripe.RefundReasonFraudulent)
	case string(stripe.RefundReasonRequestedByCustomer):
		return string(stripe.RefundReasonRequestedByCustomer)
	default:
		return ""
	}
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
