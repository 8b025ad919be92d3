package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	pfirestore "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/firestore"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// CartRepository keeps the active cart of each user at carts/{userId}. Deactivated or expired carts
// are copied to cartHistory/{cartId} before being replaced.
type CartRepository struct {
	provider *pfirestore.Provider
	carts    *pfirestore.Collection[cartDocument]
	history  *pfirestore.Collection[cartDocument]
	ttl      time.Duration
	newID    func() string
}

var _ repositories.CartRepository = (*CartRepository)(nil)

func (r *CartRepository) GetActive(ctx context.Context, userID string, now time.Time) (domain.Cart, error) {
	return r.Mutate(ctx, userID, now, nil)
}

// Mutate runs fn inside a transaction, so concurrent mutations of the same cart are retried
// rather than lost. fn may run more than once.
func (r *CartRepository) Mutate(ctx context.Context, userID string, now time.Time, fn repositories.CartMutation) (domain.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, pfirestore.NotFoundError("carts.mutate", "user id is required")
	}

	var (
		result domain.Cart
		fnErr  error
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = nil
		ref, err := r.carts.Ref(ctx, uid)
		if err != nil {
			return err
		}
		cart, created, err := r.currentInTx(ctx, tx, ref, uid, now)
		if err != nil {
			return err
		}
		if fn == nil && !created {
			result = cart
			return nil
		}
		if fn != nil {
			if err := fn(&cart); err != nil {
				fnErr = err
				return err
			}
		}
		cart.UserID = uid
		if err := tx.Set(ref, newCartDocument(cart)); err != nil {
			return err
		}
		result = cart
		return nil
	})
	if fnErr != nil {
		return domain.Cart{}, fnErr
	}
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.mutate", err)
	}
	return result, nil
}

func (r *CartRepository) Deactivate(ctx context.Context, userID, cartID string, now time.Time) error {
	uid := strings.TrimSpace(userID)
	id := strings.TrimSpace(cartID)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.carts.Ref(ctx, uid)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		doc, err := r.carts.Decode(snap)
		if err != nil {
			return err
		}
		if !doc.Data.Active || doc.Data.CartID != id {
			return nil
		}
		return r.archiveInTx(ctx, tx, ref, doc.Data, now)
	})
	return pfirestore.WrapError("carts.deactivate", err)
}

func (r *CartRepository) currentInTx(ctx context.Context, tx *firestore.Transaction, ref *firestore.DocumentRef, uid string, now time.Time) (domain.Cart, bool, error) {
	snap, err := tx.Get(ref)
	switch {
	case status.Code(err) == codes.NotFound:
		return domain.NewCart(r.newID(), uid, now, r.ttl), true, nil
	case err != nil:
		return domain.Cart{}, false, err
	}

	doc, err := r.carts.Decode(snap)
	if err != nil {
		return domain.Cart{}, false, err
	}
	cart, err := doc.Data.toDomain()
	if err != nil {
		return domain.Cart{}, false, err
	}
	if cart.Usable(now) {
		return cart, false, nil
	}
	if cart.Active {
		if err := r.archiveInTx(ctx, tx, nil, doc.Data, now); err != nil {
			return domain.Cart{}, false, err
		}
	}
	return domain.NewCart(r.newID(), uid, now, r.ttl), true, nil
}

// archiveInTx copies the cart to history as inactive and, when ref is given, flags the active
// document inactive as well.
func (r *CartRepository) archiveInTx(ctx context.Context, tx *firestore.Transaction, ref *firestore.DocumentRef, doc cartDocument, now time.Time) error {
	if strings.TrimSpace(doc.CartID) == "" {
		return errors.New("carts: stored cart missing id")
	}
	stamp := now.UTC()
	doc.Active = false
	doc.DeactivatedAt = &stamp
	doc.UpdatedAt = stamp
	historyRef, err := r.history.Ref(ctx, doc.CartID)
	if err != nil {
		return err
	}
	if err := tx.Set(historyRef, doc); err != nil {
		return err
	}
	if ref == nil {
		return nil
	}
	return tx.Update(ref, []firestore.Update{
		{Path: "active", Value: false},
		{Path: "deactivatedAt", Value: stamp},
		{Path: "updatedAt", Value: stamp},
	})
}
