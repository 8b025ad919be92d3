package services

import (
	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

// PricedLine is the minimal input the pricing engine needs per line.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// PricingAdjustments carries the optional promotional inputs.
type PricingAdjustments struct {
	Discount         *decimal.Decimal
	ShippingOverride *decimal.Decimal
}

// PricingEngine computes the canonical pricing block. Prices are tax inclusive and shipping is
// free, so tax is always zero and shipping is zero unless an override is supplied.
// Cart totals and order totals both come from Price.
type PricingEngine struct{}

// Price returns {subtotal, discount, shippingCost, tax, total} with total floored at zero.
func (PricingEngine) Price(lines []PricedLine, adj PricingAdjustments) domain.Pricing {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	discount := decimal.Zero
	if adj.Discount != nil && adj.Discount.IsPositive() {
		discount = *adj.Discount
	}
	shipping := decimal.Zero
	if adj.ShippingOverride != nil && adj.ShippingOverride.IsPositive() {
		shipping = *adj.ShippingOverride
	}
	tax := decimal.Zero

	total := subtotal.Sub(discount).Add(shipping).Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return domain.Pricing{
		Subtotal:     subtotal,
		Discount:     discount,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        total,
	}
}

func cartLines(items []domain.CartItem) []PricedLine {
	lines := make([]PricedLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, PricedLine{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	return lines
}

func orderLines(items []domain.OrderItem) []PricedLine {
	lines := make([]PricedLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, PricedLine{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	return lines
}
