package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/textutil"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

const (
	orderIDPrefix = "ord_"

	defaultOrderPrefix      = "UK"
	orderNumberSuffixSpace  = 10000
	maxOrderNumberAttempts  = 8
	maxAddressFieldLength   = 200
	maxOrderNotesLength     = 1000
	orderCreatedMessage     = "Order created successfully"
	defaultPaymentMethodKey = "online"
)

// OrderNumberGenerator formats <PREFIX><YYMMDD><4 random digits>.
type OrderNumberGenerator struct {
	Prefix string
	// IntN returns a value in [0, n). Defaults to math/rand/v2.
	IntN func(n int) int
}

// Next returns a candidate number for the given day. Uniqueness is enforced by the store.
func (g OrderNumberGenerator) Next(now time.Time) string {
	prefix := strings.ToUpper(strings.TrimSpace(g.Prefix))
	if prefix == "" {
		prefix = defaultOrderPrefix
	}
	intN := g.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return fmt.Sprintf("%s%s%04d", prefix, now.UTC().Format("060102"), intN(orderNumberSuffixSpace))
}

// OrderFactoryDeps bundles collaborators required to construct an OrderFactory.
type OrderFactoryDeps struct {
	Orders      repositories.OrderRepository
	Pricing     PricingEngine
	Numbers     OrderNumberGenerator
	Currency    string
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

// OrderFactory snapshots carts into persisted pending orders.
type OrderFactory struct {
	orders   repositories.OrderRepository
	pricing  PricingEngine
	numbers  OrderNumberGenerator
	currency string
	clock    func() time.Time
	newID    func() string
	logger   Logger
}

// NewOrderFactory validates dependencies and returns an OrderFactory.
func NewOrderFactory(deps OrderFactoryDeps) (*OrderFactory, error) {
	if deps.Orders == nil {
		return nil, errors.New("order factory: order repository is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		return nil, errors.New("order factory: currency is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return orderIDPrefix + ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &OrderFactory{
		orders:   deps.Orders,
		pricing:  deps.Pricing,
		numbers:  deps.Numbers,
		currency: currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreateOrderInput is the factory input. Cart must be the caller's active cart.
type CreateOrderInput struct {
	Cart            domain.Cart
	Email           string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	PaymentMethod   string
	Notes           string
}

// CreateOrder validates the cart and address, snapshots the items, prices them, and inserts the
// order, retrying with a fresh number when the store reports a duplicate. The cart is untouched.
func (f *OrderFactory) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if len(in.Cart.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	userID := strings.TrimSpace(in.Cart.UserID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: cart owner is required", ErrValidation)
	}
	shipping := cleanAddress(in.ShippingAddress)
	if missing := missingAddressFields(shipping); len(missing) > 0 {
		return domain.Order{}, fmt.Errorf("%w: shipping address missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	billing := shipping
	if in.BillingAddress != nil {
		billing = cleanAddress(*in.BillingAddress)
		if missing := missingAddressFields(billing); len(missing) > 0 {
			return domain.Order{}, fmt.Errorf("%w: billing address missing %s", ErrValidation, strings.Join(missing, ", "))
		}
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = shipping.Email
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = defaultPaymentMethodKey
	}

	now := f.clock()
	items := snapshotItems(in.Cart.Items)
	order := domain.Order{
		ID:              f.newID(),
		UserID:          userID,
		Email:           email,
		Currency:        f.currency,
		Items:           items,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		OrderStatus:     domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   method,
		Pricing:         f.pricing.Price(orderLines(items), PricingAdjustments{}),
		Notes:           textutil.CleanText(in.Notes, maxOrderNotesLength),
		Timeline: []domain.TimelineEntry{{
			Status:    string(domain.OrderStatusPending),
			Message:   orderCreatedMessage,
			Actor:     domain.ActorSystem,
			Timestamp: now,
		}},
		CartID:    in.Cart.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.Shipping.Method = "standard"
	order.Shipping.Cost = order.Pricing.ShippingCost

	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = f.numbers.Next(now)
		err := f.orders.Insert(ctx, order)
		if err == nil {
			return order, nil
		}
		if !isConflict(err) {
			return domain.Order{}, mapRepositoryError(err)
		}
		f.logger(ctx, "order.number.collision", map[string]any{
			"orderNumber": order.OrderNumber,
			"attempt":     attempt,
		})
	}
	return domain.Order{}, fmt.Errorf("%w: could not allocate a unique order number after %d attempts", ErrConflict, maxOrderNumberAttempts)
}

func snapshotItems(items []domain.CartItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		line := domain.OrderItem{
			ProductID:  item.ProductID,
			Variant:    item.Variant,
			Name:       item.Name,
			Slug:       item.Slug,
			Image:      item.Image,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.LineTotal(),
		}
		if item.ListPrice != nil {
			list := *item.ListPrice
			line.DiscountPrice = &list
		}
		out = append(out, line)
	}
	return out
}

func cleanAddress(addr domain.Address) domain.Address {
	clean := func(v string) string { return textutil.CleanText(v, maxAddressFieldLength) }
	return domain.Address{
		FirstName:  clean(addr.FirstName),
		LastName:   clean(addr.LastName),
		Street:     clean(addr.Street),
		City:       clean(addr.City),
		State:      clean(addr.State),
		PostalCode: clean(addr.PostalCode),
		Country:    clean(addr.Country),
		Phone:      clean(addr.Phone),
		Email:      strings.TrimSpace(addr.Email),
	}
}

func missingAddressFields(addr domain.Address) []string {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	check("firstName", addr.FirstName)
	check("lastName", addr.LastName)
	check("street", addr.Street)
	check("city", addr.City)
	check("state", addr.State)
	check("postalCode", addr.PostalCode)
	check("phone", addr.Phone)
	check("email", addr.Email)
	return missing
}
