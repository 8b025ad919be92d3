package repositories

import (
	"context"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

// Store is the single persistence seam used by services. Both the Firestore and the memory
// backend implement it with identical observable behaviour.
type Store interface {
	Mode() domain.StoreMode
	Carts() CartRepository
	Orders() OrderRepository
	Products() ProductRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartMutation mutates a cart in place. Returning an error aborts the write.
type CartMutation func(cart *domain.Cart) error

// OrderMutation mutates an order in place. Returning an error aborts the write.
type OrderMutation func(order *domain.Order) error

// CartRepository persists one active cart per user.
type CartRepository interface {
	// GetActive returns the user's active cart, creating an empty one when none exists.
	GetActive(ctx context.Context, userID string, now time.Time) (domain.Cart, error)
	// Mutate applies fn to the active cart atomically with respect to other mutations of the same user.
	Mutate(ctx context.Context, userID string, now time.Time, fn CartMutation) (domain.Cart, error)
	// Deactivate soft-invalidates the given cart so the next access yields a fresh one.
	// Deactivating an already inactive or replaced cart is a no-op.
	Deactivate(ctx context.Context, userID, cartID string, now time.Time) error
}

// OrderRepository persists orders.
type OrderRepository interface {
	// Insert stores a new order. A duplicate order number yields a RepositoryError with IsConflict.
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
	// Mutate applies fn to the stored order atomically with respect to other mutations of the same order.
	Mutate(ctx context.Context, orderID string, fn OrderMutation) (domain.Order, error)
}

// ProductRepository is a read-only catalog lookup.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// OrderListFilter narrows order listings. Results are ordered newest first.
type OrderListFilter struct {
	UserID string
	Status string
	Page   int
	Limit  int
}

// Offset returns the zero-based index of the first item on the page.
func (f OrderListFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
