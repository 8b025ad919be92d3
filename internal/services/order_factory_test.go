package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories/memory"
)

func factoryCart() domain.Cart {
	list := decimal.NewFromInt(9900)
	return domain.Cart{
		ID:     "cart_1",
		UserID: "user-1",
		Active: true,
		Items: []domain.CartItem{
			{ProductID: "saree", Name: "Silk Saree", Slug: "silk-saree", Quantity: 1, UnitPrice: decimal.NewFromInt(35000)},
			{ProductID: "scarf", Name: "Cotton Scarf", Slug: "cotton-scarf", Quantity: 2, UnitPrice: decimal.NewFromInt(8500), ListPrice: &list},
		},
	}
}

func TestOrderNumberFormat(t *testing.T) {
	gen := OrderNumberGenerator{Prefix: "uk", IntN: func(int) int { return 42 }}
	number := gen.Next(fixedNow)
	if number != "UK2501150042" {
		t.Fatalf("unexpected order number %q", number)
	}
	if !regexp.MustCompile(`^UK\d{6}\d{4}$`).MatchString(OrderNumberGenerator{}.Next(fixedNow)) {
		t.Fatalf("default generator produced malformed number")
	}
}

func TestOrderFactorySnapshotsCart(t *testing.T) {
	store := memory.NewStore()
	factory, err := NewOrderFactory(OrderFactoryDeps{Orders: store.Orders(), Currency: "inr", Clock: fixedClock})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	order, err := factory.CreateOrder(context.Background(), CreateOrderInput{
		Cart:            factoryCart(),
		ShippingAddress: validAddress(),
		Notes:           "<b>leave</b> at   door",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if order.OrderStatus != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("unexpected statuses %s/%s", order.OrderStatus, order.PaymentStatus)
	}
	if len(order.Timeline) != 1 || order.Timeline[0].Message != "Order created successfully" {
		t.Fatalf("expected one creation timeline entry, got %+v", order.Timeline)
	}
	if !order.Pricing.Subtotal.Equal(decimal.NewFromInt(52000)) || !order.Pricing.Total.Equal(decimal.NewFromInt(52000)) {
		t.Fatalf("expected 52000 subtotal and total, got %+v", order.Pricing)
	}
	if !order.Pricing.Tax.IsZero() || !order.Pricing.ShippingCost.IsZero() {
		t.Fatalf("expected zero tax and shipping")
	}
	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.TotalPrice)
	}
	expected := sum.Sub(order.Pricing.Discount).Add(order.Pricing.ShippingCost).Add(order.Pricing.Tax)
	if expected.IsNegative() {
		expected = decimal.Zero
	}
	if !order.Pricing.Total.Equal(expected) {
		t.Fatalf("pricing invariant broken: total %s, expected %s", order.Pricing.Total, expected)
	}
	if order.Items[1].DiscountPrice == nil || !order.Items[1].DiscountPrice.Equal(decimal.NewFromInt(9900)) {
		t.Fatalf("expected list price reference on discounted line")
	}
	if order.BillingAddress != order.ShippingAddress {
		t.Fatalf("expected billing to default to shipping")
	}
	if order.Email != "asha@example.com" || order.Currency != "INR" || order.CartID != "cart_1" {
		t.Fatalf("unexpected order metadata %+v", order)
	}
	if order.Notes != "leave at door" {
		t.Fatalf("expected sanitised notes, got %q", order.Notes)
	}

	stored, err := store.Orders().FindByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.OrderNumber != order.OrderNumber {
		t.Fatalf("stored order mismatch")
	}
}

func TestOrderFactoryRejectsInvalidInput(t *testing.T) {
	store := memory.NewStore()
	factory, err := NewOrderFactory(OrderFactoryDeps{Orders: store.Orders(), Currency: "INR", Clock: fixedClock})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	ctx := context.Background()

	empty := factoryCart()
	empty.Items = nil
	if _, err := factory.CreateOrder(ctx, CreateOrderInput{Cart: empty, ShippingAddress: validAddress()}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}

	addr := validAddress()
	addr.PostalCode = "  "
	if _, err := factory.CreateOrder(ctx, CreateOrderInput{Cart: factoryCart(), ShippingAddress: addr}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for incomplete address, got %v", err)
	}

	billing := validAddress()
	billing.City = ""
	if _, err := factory.CreateOrder(ctx, CreateOrderInput{Cart: factoryCart(), ShippingAddress: validAddress(), BillingAddress: &billing}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for incomplete billing address, got %v", err)
	}
}

func TestOrderFactoryGeneratesUniqueNumbersWithCollisionRetry(t *testing.T) {
	store := memory.NewStore()
	calls, next := 0, 0
	// Every fifth draw repeats the previous suffix to force a store conflict.
	intN := func(n int) int {
		calls++
		if calls%5 == 0 && next > 0 {
			return next - 1
		}
		v := next % n
		next++
		return v
	}
	collisions := 0
	factory, err := NewOrderFactory(OrderFactoryDeps{
		Orders:   store.Orders(),
		Currency: "INR",
		Clock:    fixedClock,
		Numbers:  OrderNumberGenerator{Prefix: "UK", IntN: intN},
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			if event == "order.number.collision" {
				collisions++
			}
		},
	})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	const total = 10000
	seen := make(map[string]struct{}, total)
	cart := factoryCart()
	for i := 0; i < total; i++ {
		order, err := factory.CreateOrder(context.Background(), CreateOrderInput{Cart: cart, ShippingAddress: validAddress()})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if _, dup := seen[order.OrderNumber]; dup {
			t.Fatalf("duplicate order number %s", order.OrderNumber)
		}
		seen[order.OrderNumber] = struct{}{}
	}
	if len(seen) != total {
		t.Fatalf("expected %d unique numbers, got %d", total, len(seen))
	}
	if collisions == 0 {
		t.Fatalf("expected collision retries to be exercised")
	}
}

func TestOrderFactoryGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := memory.NewStore()
	factory, err := NewOrderFactory(OrderFactoryDeps{
		Orders:   store.Orders(),
		Currency: "INR",
		Clock:    fixedClock,
		Numbers:  OrderNumberGenerator{IntN: func(int) int { return 7 }},
	})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	ctx := context.Background()
	if _, err := factory.CreateOrder(ctx, CreateOrderInput{Cart: factoryCart(), ShippingAddress: validAddress()}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := factory.CreateOrder(ctx, CreateOrderInput{Cart: factoryCart(), ShippingAddress: validAddress()}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict after exhausting retries, got %v", err)
	}
}
