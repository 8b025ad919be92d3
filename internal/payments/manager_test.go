package payments

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	lastOp  string
	intent  Intent
	refund  RefundResult
	webhook WebhookEvent
	err     error
}

func (f *fakeProvider) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	f.lastOp = "create"
	return f.intent, f.err
}

func (f *fakeProvider) VerifyPayment(ctx context.Context, req VerifyRequest) error {
	f.lastOp = "verify"
	return f.err
}

func (f *fakeProvider) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	f.lastOp = "refund"
	return f.refund, f.err
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	f.lastOp = "webhook"
	return f.webhook, f.err
}

func TestManagerCreateIntentUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	rzp := &fakeProvider{intent: Intent{GatewayOrderID: "order_rzp"}}
	stripe := &fakeProvider{intent: Intent{GatewayOrderID: "pi_stripe"}}

	mgr, err := NewManager(map[string]Provider{
		ProviderRazorpay: rzp,
		ProviderStripe:   stripe,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	intent, err := mgr.CreateIntent(ctx, PaymentContext{PreferredProvider: "Stripe"}, IntentRequest{Amount: 100, Currency: "INR"})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Provider != ProviderStripe {
		t.Fatalf("expected provider stripe, got %q", intent.Provider)
	}
	if stripe.lastOp != "create" {
		t.Fatalf("expected stripe provider to handle call")
	}
	if rzp.lastOp != "" {
		t.Fatalf("expected razorpay provider to remain unused")
	}
}

func TestManagerDefaultsToRazorpay(t *testing.T) {
	ctx := context.Background()
	rzp := &fakeProvider{intent: Intent{GatewayOrderID: "order_rzp"}}
	stripe := &fakeProvider{}

	mgr, err := NewManager(map[string]Provider{
		ProviderRazorpay: rzp,
		ProviderStripe:   stripe,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	intent, err := mgr.CreateIntent(ctx, PaymentContext{Currency: "INR"}, IntentRequest{Amount: 100})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Provider != ProviderRazorpay || rzp.lastOp != "create" {
		t.Fatalf("expected razorpay default, got %q", intent.Provider)
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	ctx := context.Background()
	rzp := &fakeProvider{}
	stripe := &fakeProvider{refund: RefundResult{RefundID: "re_1"}}

	mgr, err := NewManager(
		map[string]Provider{
			ProviderRazorpay: rzp,
			ProviderStripe:   stripe,
		},
		WithCurrencyRoutes(map[string]string{"usd": "stripe"}),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	result, err := mgr.Refund(ctx, PaymentContext{Currency: "USD"}, RefundRequest{GatewayPaymentID: "pi_1"})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if result.Provider != ProviderStripe || stripe.lastOp != "refund" {
		t.Fatalf("expected stripe to handle USD refund, got %q", result.Provider)
	}
	if key, err := mgr.Resolve(PaymentContext{Currency: "INR"}); err != nil || key != ProviderRazorpay {
		t.Fatalf("expected INR to resolve to razorpay, got %q %v", key, err)
	}
}

func TestManagerUnsupportedProvider(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(map[string]Provider{"stripe": &fakeProvider{}, "paypal": &fakeProvider{}}, WithDefaultProvider(""))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	err = mgr.VerifyPayment(ctx, PaymentContext{PreferredProvider: "unknown"}, VerifyRequest{})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestManagerParseWebhookRequiresNamedProvider(t *testing.T) {
	rzp := &fakeProvider{webhook: WebhookEvent{Type: WebhookPaymentCaptured}}
	mgr, err := NewManager(map[string]Provider{ProviderRazorpay: rzp})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	event, err := mgr.ParseWebhook("razorpay", []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.Provider != ProviderRazorpay || event.Type != WebhookPaymentCaptured {
		t.Fatalf("unexpected event %+v", event)
	}
	if _, err := mgr.ParseWebhook("stripe", nil, ""); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected unsupported provider for unregistered webhook source, got %v", err)
	}
}

func TestNewManagerValidatesProviders(t *testing.T) {
	if _, err := NewManager(map[string]Provider{"bad": nil}); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error when providers empty")
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "shh"
	payload := PaymentSignaturePayload("order_1", "pay_1")
	if payload != "order_1|pay_1" {
		t.Fatalf("unexpected payload %q", payload)
	}
	sig := Sign(secret, payload)
	if !VerifySignature(secret, payload, sig) {
		t.Fatalf("expected signature to verify")
	}
	cases := map[string]string{
		"tampered":  sig[:len(sig)-1] + "0",
		"truncated": sig[:10],
		"not hex":   "zz" + sig[2:],
		"empty":     "",
	}
	if sig[len(sig)-1] == '0' {
		cases["tampered"] = sig[:len(sig)-1] + "1"
	}
	for name, candidate := range cases {
		if VerifySignature(secret, payload, candidate) {
			t.Fatalf("%s: expected verification failure", name)
		}
	}
	if VerifySignature("", payload, sig) {
		t.Fatalf("expected empty secret to never verify")
	}
}
