package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// CartRepository keeps one active cart per user plus the archive of deactivated carts.
// Every read-modify-write for a user runs under that user's lock.
type CartRepository struct {
	closed *atomic.Bool
	ttl    time.Duration
	newID  func() string
	locks  *keyedLocker

	mu       sync.RWMutex
	active   map[string]domain.Cart
	archived map[string]domain.Cart
}

var _ repositories.CartRepository = (*CartRepository)(nil)

func newCartRepository(closed *atomic.Bool, ttl time.Duration, newID func() string) *CartRepository {
	return &CartRepository{
		closed:   closed,
		ttl:      ttl,
		newID:    newID,
		locks:    newKeyedLocker(),
		active:   make(map[string]domain.Cart),
		archived: make(map[string]domain.Cart),
	}
}

func (r *CartRepository) GetActive(ctx context.Context, userID string, now time.Time) (domain.Cart, error) {
	return r.Mutate(ctx, userID, now, nil)
}

func (r *CartRepository) Mutate(ctx context.Context, userID string, now time.Time, fn repositories.CartMutation) (domain.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, notFound("carts.mutate", "user id is required")
	}
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, err
	}
	if r.closed.Load() {
		return domain.Cart{}, unavailable("carts.mutate")
	}

	unlock := r.locks.Lock(uid)
	defer unlock()

	cart, created := r.currentLocked(uid, now)
	if fn != nil {
		if err := fn(&cart); err != nil {
			return domain.Cart{}, err
		}
	} else if !created {
		return domain.CloneCart(cart), nil
	}
	if cart.ID == "" {
		cart.ID = r.newID()
	}
	cart.UserID = uid

	r.mu.Lock()
	r.active[uid] = domain.CloneCart(cart)
	r.mu.Unlock()
	return cart, nil
}

func (r *CartRepository) Deactivate(ctx context.Context, userID, cartID string, now time.Time) error {
	uid := strings.TrimSpace(userID)
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed.Load() {
		return unavailable("carts.deactivate")
	}

	unlock := r.locks.Lock(uid)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.active[uid]
	if !ok || !cart.Active || cart.ID != strings.TrimSpace(cartID) {
		return nil
	}
	cart.Active = false
	cart.UpdatedAt = now.UTC()
	r.archived[cart.ID] = cart
	delete(r.active, uid)
	return nil
}

// currentLocked returns the user's usable cart, replacing an inactive or expired one. Callers hold
// the user lock.
func (r *CartRepository) currentLocked(uid string, now time.Time) (domain.Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cart, ok := r.active[uid]; ok {
		if cart.Usable(now) {
			return domain.CloneCart(cart), false
		}
		cart.Active = false
		r.archived[cart.ID] = cart
		delete(r.active, uid)
	}
	return domain.NewCart(r.newID(), uid, now, r.ttl), true
}
