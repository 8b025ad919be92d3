package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCartTTL is the cart expiry window renewed on every item mutation.
const DefaultCartTTL = 30 * 24 * time.Hour

// NewCart returns an empty active cart for the user.
func NewCart(id, userID string, now time.Time, ttl time.Duration) Cart {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	now = now.UTC()
	return Cart{
		ID:        id,
		UserID:    userID,
		Items:     []CartItem{},
		Active:    true,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Usable reports whether the cart can still be served as the user's active cart.
func (c Cart) Usable(now time.Time) bool {
	if !c.Active {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

// CloneCart deep-copies a cart so callers cannot alias stored state.
func CloneCart(c Cart) Cart {
	dup := c
	if c.Items != nil {
		dup.Items = make([]CartItem, len(c.Items))
		for i, item := range c.Items {
			item.ListPrice = cloneDecimal(item.ListPrice)
			dup.Items[i] = item
		}
	}
	return dup
}

// CloneOrder deep-copies an order so callers cannot alias stored state.
func CloneOrder(o Order) Order {
	dup := o
	if o.Items != nil {
		dup.Items = make([]OrderItem, len(o.Items))
		for i, item := range o.Items {
			item.DiscountPrice = cloneDecimal(item.DiscountPrice)
			dup.Items[i] = item
		}
	}
	if o.Timeline != nil {
		dup.Timeline = make([]TimelineEntry, len(o.Timeline))
		for i, entry := range o.Timeline {
			entry.Metadata = cloneStrings(entry.Metadata)
			dup.Timeline[i] = entry
		}
	}
	dup.Payment.PaidAt = cloneTime(o.Payment.PaidAt)
	dup.Shipping.ShippedAt = cloneTime(o.Shipping.ShippedAt)
	dup.Shipping.EstimatedDelivery = cloneTime(o.Shipping.EstimatedDelivery)
	dup.Shipping.DeliveredAt = cloneTime(o.Shipping.DeliveredAt)
	if o.Refund != nil {
		refund := *o.Refund
		dup.Refund = &refund
	}
	return dup
}

func cloneDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneStrings(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
