package payments

import (
	"context"
	"errors"
	"fmt"
)

// Status is a gateway-neutral payment or refund state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var (
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	// ErrSignatureMismatch covers both checkout completion and webhook signatures.
	ErrSignatureMismatch = errors.New("payments: signature mismatch")
)

// GatewayError wraps a failed call to the remote PSP.
// Rejected is true when the provider refused the request itself (bad amount, unknown payment);
// otherwise the failure is transport-level or a provider outage.
type GatewayError struct {
	Provider string
	Op       string
	Rejected bool
	Err      error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IntentRequest asks the PSP to create a remote payment object for an order.
// Amount is always in minor units.
type IntentRequest struct {
	OrderID        string
	OrderNumber    string
	Amount         int64
	Currency       string
	Email          string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the gateway object handed back to the client to complete payment.
type Intent struct {
	Provider       string
	GatewayOrderID string
	ClientSecret   string
	KeyID          string
	Amount         int64
	Currency       string
	Receipt        string
	Status         Status
}

// VerifyRequest carries the client-supplied completion identifiers.
type VerifyRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// RefundRequest defines a PSP refund attempt. A nil Amount refunds in full.
type RefundRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           *int64
	Reason           string
	IdempotencyKey   string
	Metadata         map[string]string
}

// RefundResult normalises the PSP refund response.
type RefundResult struct {
	Provider string
	RefundID string
	Amount   int64
	Status   Status
}

// WebhookEventType is the normalised kind of an inbound gateway notification.
type WebhookEventType string

const (
	WebhookPaymentCaptured WebhookEventType = "payment.captured"
	WebhookPaymentFailed   WebhookEventType = "payment.failed"
	WebhookIgnored         WebhookEventType = "ignored"
)

// WebhookEvent is a verified, provider-neutral gateway notification.
type WebhookEvent struct {
	ID               string
	Provider         string
	Type             WebhookEventType
	RawType          string
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           int64
	Currency         string
	Reason           string
}

// Provider is implemented once per gateway. Amounts crossing this boundary are minor units.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	VerifyPayment(ctx context.Context, req VerifyRequest) error
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}
