package firestore

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	pfirestore "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/firestore"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

const (
	cartCollection        = "carts"
	cartHistoryCollection = "cartHistory"
	orderCollection       = "orders"
	orderNumberCollection = "orderNumbers"
	productCollection     = "products"
)

// Store is the persistent Firestore backend.
type Store struct {
	provider *pfirestore.Provider
	carts    *CartRepository
	orders   *OrderRepository
	products *ProductRepository
}

var _ repositories.Store = (*Store)(nil)

// StoreOption customises the Firestore store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	cartTTL time.Duration
	newID   func() string
}

// WithCartTTL sets the expiry window given to freshly created carts.
func WithCartTTL(ttl time.Duration) StoreOption {
	return func(o *storeOptions) {
		if ttl > 0 {
			o.cartTTL = ttl
		}
	}
}

// WithCartIDGenerator overrides cart id generation.
func WithCartIDGenerator(fn func() string) StoreOption {
	return func(o *storeOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewStore wires the Firestore repositories onto a shared provider.
func NewStore(provider *pfirestore.Provider, opts ...StoreOption) (*Store, error) {
	if provider == nil {
		return nil, errors.New("firestore store requires provider")
	}
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
	return &Store{
		provider: provider,
		carts: &CartRepository{
			provider: provider,
			carts:    pfirestore.NewCollection[cartDocument](provider, cartCollection),
			history:  pfirestore.NewCollection[cartDocument](provider, cartHistoryCollection),
			ttl:      options.cartTTL,
			newID:    options.newID,
		},
		orders: &OrderRepository{
			provider: provider,
			orders:   pfirestore.NewCollection[orderDocument](provider, orderCollection),
			numbers:  pfirestore.NewCollection[orderNumberDocument](provider, orderNumberCollection),
		},
		products: &ProductRepository{
			products: pfirestore.NewCollection[productDocument](provider, productCollection),
		},
	}, nil
}

func (s *Store) Mode() domain.StoreMode { return domain.StoreModePersistent }

func (s *Store) Carts() repositories.CartRepository { return s.carts }

func (s *Store) Orders() repositories.OrderRepository { return s.orders }

func (s *Store) Products() repositories.ProductRepository { return s.products }

func (s *Store) Ping(ctx context.Context) error { return s.provider.Ping(ctx) }

func (s *Store) Close(ctx context.Context) error { return s.provider.Close(ctx) }
