package services

import (
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestPricingEngineSumsLines(t *testing.T) {
	pricing := PricingEngine{}.Price([]PricedLine{
		{UnitPrice: dec(35000), Quantity: 1},
		{UnitPrice: dec(8500), Quantity: 2},
	}, PricingAdjustments{})

	if !pricing.Subtotal.Equal(dec(52000)) || !pricing.Total.Equal(dec(52000)) {
		t.Fatalf("expected subtotal and total 52000, got %s / %s", pricing.Subtotal, pricing.Total)
	}
	if !pricing.Tax.IsZero() || !pricing.ShippingCost.IsZero() {
		t.Fatalf("expected zero tax and shipping, got %s / %s", pricing.Tax, pricing.ShippingCost)
	}
}

func TestPricingEngineFloorsTotalAtZero(t *testing.T) {
	discount := dec(1000)
	pricing := PricingEngine{}.Price([]PricedLine{{UnitPrice: dec(400), Quantity: 1}}, PricingAdjustments{Discount: &discount})
	if !pricing.Total.IsZero() {
		t.Fatalf("expected total floored at zero, got %s", pricing.Total)
	}
	if !pricing.Discount.Equal(discount) {
		t.Fatalf("expected discount preserved, got %s", pricing.Discount)
	}
}

func TestPricingEngineAppliesDiscountAndShippingOverride(t *testing.T) {
	discount := dec(500)
	shipping := dec(99)
	pricing := PricingEngine{}.Price([]PricedLine{{UnitPrice: dec(1000), Quantity: 3}}, PricingAdjustments{Discount: &discount, ShippingOverride: &shipping})
	want := dec(3000 - 500 + 99)
	if !pricing.Total.Equal(want) {
		t.Fatalf("expected %s, got %s", want, pricing.Total)
	}
}

func TestPricingEngineIgnoresNonPositiveQuantities(t *testing.T) {
	pricing := PricingEngine{}.Price([]PricedLine{{UnitPrice: dec(1000), Quantity: 0}, {UnitPrice: dec(10), Quantity: -2}}, PricingAdjustments{})
	if !pricing.Subtotal.IsZero() {
		t.Fatalf("expected zero subtotal, got %s", pricing.Subtotal)
	}
}

func TestCartAndOrderLinesAgree(t *testing.T) {
	cartItems := []domain.CartItem{
		{ProductID: "a", UnitPrice: decimal.RequireFromString("199.99"), Quantity: 3},
		{ProductID: "b", UnitPrice: dec(45000), Quantity: 1},
	}
	orderItems := snapshotItems(cartItems)

	engine := PricingEngine{}
	cartTotals := engine.Price(cartLines(cartItems), PricingAdjustments{})
	orderTotals := engine.Price(orderLines(orderItems), PricingAdjustments{})
	if !cartTotals.Total.Equal(orderTotals.Total) {
		t.Fatalf("cart total %s and order total %s diverged", cartTotals.Total, orderTotals.Total)
	}
	sum := decimal.Zero
	for _, item := range orderItems {
		sum = sum.Add(item.TotalPrice)
	}
	if !sum.Equal(orderTotals.Subtotal) {
		t.Fatalf("sum of line totals %s != subtotal %s", sum, orderTotals.Subtotal)
	}
}
