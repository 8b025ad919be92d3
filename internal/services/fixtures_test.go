package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories/memory"
)

const testGatewaySecret = "gateway-secret"

var fixedNow = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testCatalog() []domain.Product {
	sale := decimal.NewFromInt(8500)
	return []domain.Product{
		{ID: "kurta", Name: "Block Print Kurta", Slug: "block-print-kurta", Image: "kurta.jpg", Price: decimal.NewFromInt(45000), Active: true},
		{ID: "saree", Name: "Silk Saree", Slug: "silk-saree", Price: decimal.NewFromInt(35000), Variants: []string{"red", "blue"}, Active: true},
		{ID: "scarf", Name: "Cotton Scarf", Slug: "cotton-scarf", Price: decimal.NewFromInt(9900), SalePrice: &sale, Active: true},
		{ID: "retired", Name: "Retired", Price: decimal.NewFromInt(100), Active: false},
	}
}

func validAddress() domain.Address {
	return domain.Address{
		FirstName:  "Asha",
		LastName:   "Rao",
		Street:     "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
		Phone:      "+919999999999",
		Email:      "asha@example.com",
	}
}

// fakeGateway signs with a shared secret the way the hosted checkout would.
type fakeGateway struct {
	mu         sync.Mutex
	createErr  error
	refundErr  error
	intents    []payments.IntentRequest
	refunds    []payments.RefundRequest
	webhook    payments.WebhookEvent
	webhookErr error
	seq        int
}

func (g *fakeGateway) Resolve(paymentCtx payments.PaymentContext) (string, error) {
	if paymentCtx.PreferredProvider == "unknown" {
		return "", payments.ErrUnsupportedProvider
	}
	return payments.ProviderRazorpay, nil
}

func (g *fakeGateway) CreateIntent(ctx context.Context, paymentCtx payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents = append(g.intents, req)
	if g.createErr != nil {
		return payments.Intent{}, g.createErr
	}
	g.seq++
	return payments.Intent{
		Provider:       payments.ProviderRazorpay,
		GatewayOrderID: "order_gw_" + req.OrderID,
		KeyID:          "rzp_test",
		Amount:         req.Amount,
		Currency:       req.Currency,
		Receipt:        req.OrderNumber,
	}, nil
}

func (g *fakeGateway) VerifyPayment(ctx context.Context, paymentCtx payments.PaymentContext, req payments.VerifyRequest) error {
	if !payments.VerifySignature(testGatewaySecret, payments.PaymentSignaturePayload(req.GatewayOrderID, req.GatewayPaymentID), req.Signature) {
		return payments.ErrSignatureMismatch
	}
	return nil
}

func (g *fakeGateway) Refund(ctx context.Context, paymentCtx payments.PaymentContext, req payments.RefundRequest) (payments.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, req)
	if g.refundErr != nil {
		return payments.RefundResult{}, g.refundErr
	}
	amount := int64(0)
	if req.Amount != nil {
		amount = *req.Amount
	}
	return payments.RefundResult{Provider: payments.ProviderRazorpay, RefundID: "rfnd_1", Amount: amount, Status: payments.StatusRefunded}, nil
}

func (g *fakeGateway) ParseWebhook(provider string, payload []byte, signature string) (payments.WebhookEvent, error) {
	return g.webhook, g.webhookErr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingArchiver struct {
	mu     sync.Mutex
	orders []string
}

func (a *recordingArchiver) ArchiveReceipt(ctx context.Context, order domain.Order) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders = append(a.orders, order.OrderNumber)
	return "receipts/" + order.OrderNumber + ".json", nil
}

type harness struct {
	store     *memory.Store
	gateway   *fakeGateway
	events    *recordingPublisher
	receipts  *recordingArchiver
	carts     CartService
	checkout  CheckoutService
	payments  PaymentService
	orders    OrderService
	factory   *OrderFactory
	logEvents []string
	logMu     sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(memory.WithProducts(testCatalog())),
		gateway:  &fakeGateway{},
		events:   &recordingPublisher{},
		receipts: &recordingArchiver{},
	}
	logger := func(ctx context.Context, event string, fields map[string]any) {
		h.logMu.Lock()
		defer h.logMu.Unlock()
		h.logEvents = append(h.logEvents, event)
	}

	var err error
	h.carts, err = NewCartService(CartServiceDeps{Carts: h.store.Carts(), Products: h.store.Products(), Clock: fixedClock})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	h.factory, err = NewOrderFactory(OrderFactoryDeps{Orders: h.store.Orders(), Currency: "INR", Clock: fixedClock, Logger: logger})
	if err != nil {
		t.Fatalf("order factory: %v", err)
	}
	h.checkout, err = NewCheckoutService(CheckoutServiceDeps{
		Carts:    h.store.Carts(),
		Orders:   h.store.Orders(),
		Factory:  h.factory,
		Payments: h.gateway,
		Events:   h.events,
		Clock:    fixedClock,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	h.payments, err = NewPaymentService(PaymentServiceDeps{
		Carts:    h.store.Carts(),
		Orders:   h.store.Orders(),
		Payments: h.gateway,
		Events:   h.events,
		Receipts: h.receipts,
		Clock:    fixedClock,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("payment service: %v", err)
	}
	h.orders, err = NewOrderService(OrderServiceDeps{Orders: h.store.Orders(), Events: h.events, Clock: fixedClock, Logger: logger})
	if err != nil {
		t.Fatalf("order service: %v", err)
	}
	return h
}

func (h *harness) logged(event string) bool {
	h.logMu.Lock()
	defer h.logMu.Unlock()
	for _, e := range h.logEvents {
		if e == event {
			return true
		}
	}
	return false
}

func (h *harness) checkoutCart(t *testing.T, userID string) CheckoutResult {
	t.Helper()
	result, err := h.checkout.CreateOrder(context.Background(), CreateOrderCommand{
		UserID:          userID,
		ShippingAddress: validAddress(),
		PaymentMethod:   "razorpay",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return result
}

func (h *harness) verify(userID string, result CheckoutResult, paymentID string) (domain.Order, error) {
	gatewayOrderID := result.Intent.GatewayOrderID
	return h.payments.Verify(context.Background(), VerifyPaymentCommand{
		UserID:           userID,
		OrderID:          result.Order.ID,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        payments.Sign(testGatewaySecret, payments.PaymentSignaturePayload(gatewayOrderID, paymentID)),
	})
}

// paidOrder drives a one-item cart through checkout and verification.
func (h *harness) paidOrder(t *testing.T, userID string) domain.Order {
	t.Helper()
	if _, err := h.carts.AddItem(context.Background(), AddCartItemCommand{UserID: userID, ProductID: "kurta", Quantity: 1}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	result := h.checkoutCart(t, userID)
	order, err := h.verify(userID, result, "pay_"+userID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return order
}
