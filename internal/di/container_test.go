package di

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories/memory"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

type fakeProvider struct{}

func (fakeProvider) CreateIntent(context.Context, payments.IntentRequest) (payments.Intent, error) {
	return payments.Intent{}, nil
}
func (fakeProvider) VerifyPayment(context.Context, payments.VerifyRequest) error { return nil }
func (fakeProvider) Refund(context.Context, payments.RefundRequest) (payments.RefundResult, error) {
	return payments.RefundResult{}, nil
}
func (fakeProvider) ParseWebhook([]byte, string) (payments.WebhookEvent, error) {
	return payments.WebhookEvent{}, nil
}

type closingPublisher struct {
	closed bool
	err    error
}

func (p *closingPublisher) PublishOrderEvent(context.Context, services.OrderEvent) error { return nil }
func (p *closingPublisher) Close() error {
	p.closed = true
	return p.err
}

func testConfig() config.Config {
	return config.Config{
		Commerce: config.CommerceConfig{
			Currency:    "INR",
			OrderPrefix: "UK",
			Locale:      "en-IN",
			CartTTL:     24 * time.Hour,
		},
	}
}

func newManager(t *testing.T) *payments.Manager {
	t.Helper()
	manager, err := payments.NewManager(map[string]payments.Provider{payments.ProviderRazorpay: fakeProvider{}})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return manager
}

func TestNewContainerBuildsServices(t *testing.T) {
	store := memory.NewStore()
	publisher := &closingPublisher{}
	container, err := NewContainer(context.Background(), testConfig(), store, Infrastructure{
		Payments: newManager(t),
		Events:   publisher,
	})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	if container.Services.Cart == nil || container.Services.Checkout == nil || container.Services.Payments == nil || container.Services.Orders == nil {
		t.Fatalf("expected core services, got %+v", container.Services)
	}
	if container.Services.System != nil {
		t.Fatalf("expected no system service without a health repository")
	}
	if container.StoreMode() != "memory" {
		t.Fatalf("expected memory mode, got %q", container.StoreMode())
	}

	cart, err := container.Services.Cart.GetCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}

	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !publisher.closed {
		t.Fatalf("expected events publisher to be closed")
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Fatalf("expected closed store to fail ping")
	}
}

func TestNewContainerRequiresDependencies(t *testing.T) {
	if _, err := NewContainer(context.Background(), testConfig(), nil, Infrastructure{Payments: newManager(t)}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := NewContainer(context.Background(), testConfig(), memory.NewStore(), Infrastructure{}); err == nil {
		t.Fatalf("expected error without payment manager")
	}

	cfg := testConfig()
	cfg.Commerce.Currency = ""
	if _, err := NewContainer(context.Background(), cfg, memory.NewStore(), Infrastructure{Payments: newManager(t)}); err == nil {
		t.Fatalf("expected order factory to reject empty currency")
	}
}

func TestContainerCloseJoinsErrors(t *testing.T) {
	publisher := &closingPublisher{err: errors.New("broker gone")}
	container, err := NewContainer(context.Background(), testConfig(), memory.NewStore(), Infrastructure{
		Payments: newManager(t),
		Events:   publisher,
	})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if err := container.Close(context.Background()); err == nil || !errors.Is(err, publisher.err) {
		t.Fatalf("expected publisher error, got %v", err)
	}
}

func TestServiceLoggerWritesDebugEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := ServiceLogger(zap.New(core), "cart")

	log(context.Background(), "cart.item_added", map[string]any{"productId": "prod-1"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].LoggerName != "cart" || fields["event"] != "cart.item_added" || fields["productId"] != "prod-1" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if ServiceLogger(nil, "cart") != nil {
		t.Fatalf("expected nil logger adapter for nil zap logger")
	}
}
