package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// Store is the in-process fallback backend. It keeps no state across restarts and is not shared
// between instances.
type Store struct {
	closed   *atomic.Bool
	carts    *CartRepository
	orders   *OrderRepository
	products *ProductRepository
}

// Option customises the memory store.
type Option func(*storeOptions)

type storeOptions struct {
	products []domain.Product
	cartTTL  time.Duration
	newID    func() string
}

// WithProducts seeds the catalog.
func WithProducts(products []domain.Product) Option {
	return func(o *storeOptions) {
		o.products = append(o.products, products...)
	}
}

// WithCartTTL sets the expiry window given to freshly created carts.
func WithCartTTL(ttl time.Duration) Option {
	return func(o *storeOptions) {
		if ttl > 0 {
			o.cartTTL = ttl
		}
	}
}

// WithCartIDGenerator overrides cart id generation.
func WithCartIDGenerator(fn func() string) Option {
	return func(o *storeOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

var _ repositories.Store = (*Store)(nil)

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	options := storeOptions{
		cartTTL: domain.DefaultCartTTL,
		newID: func() string {
			return "cart_" + ulid.Make().String()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	closed := &atomic.Bool{}
	return &Store{
		closed:   closed,
		carts:    newCartRepository(closed, options.cartTTL, options.newID),
		orders:   newOrderRepository(closed),
		products: newProductRepository(closed, options.products),
	}
}

func (s *Store) Mode() domain.StoreMode { return domain.StoreModeMemory }

func (s *Store) Carts() repositories.CartRepository { return s.carts }

func (s *Store) Orders() repositories.OrderRepository { return s.orders }

func (s *Store) Products() repositories.ProductRepository { return s.products }

// Ping fails only after Close.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return unavailable("memory.ping")
	}
	return nil
}

// Close marks the store unavailable. Subsequent operations fail with an unavailable error.
func (s *Store) Close(context.Context) error {
	s.closed.Store(true)
	return nil
}
