package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// CartServiceDeps bundles collaborators required to construct the cart service.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Pricing  PricingEngine
	TTL      time.Duration
	Clock    func() time.Time
	Logger   Logger
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	pricing  PricingEngine
	ttl      time.Duration
	clock    func() time.Time
	logger   Logger
}

var _ CartService = (*cartService)(nil)

// NewCartService wires dependencies into a CartService implementation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = domain.DefaultCartTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		pricing:  deps.Pricing,
		ttl:      ttl,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	uid, err := requireUser(userID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart, err := s.carts.GetActive(ctx, uid, s.clock())
	if err != nil {
		return domain.Cart{}, mapRepositoryError(err)
	}
	return s.derive(cart), nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (domain.Cart, error) {
	uid, err := requireUser(cmd.UserID)
	if err != nil {
		return domain.Cart{}, err
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: productId is required", ErrValidation)
	}
	if cmd.Quantity < 1 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Cart{}, mapRepositoryError(err)
	}
	if !product.Active {
		return domain.Cart{}, fmt.Errorf("%w: product %s is not available", ErrNotFound, productID)
	}
	variant := strings.TrimSpace(cmd.Variant)
	if len(product.Variants) > 0 && !slices.Contains(product.Variants, variant) {
		return domain.Cart{}, fmt.Errorf("%w: variant %q is not offered for product %s", ErrValidation, variant, productID)
	}
	price := product.EffectivePrice()
	if price.IsNegative() {
		return domain.Cart{}, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	now := s.clock()
	cart, err := s.carts.Mutate(ctx, uid, now, func(cart *domain.Cart) error {
		item := domain.CartItem{
			ProductID: product.ID,
			Variant:   variant,
			Name:      product.Name,
			Slug:      product.Slug,
			Image:     product.Image,
			Quantity:  cmd.Quantity,
			UnitPrice: price,
			AddedAt:   now,
		}
		if !price.Equal(product.Price) {
			list := product.Price
			item.ListPrice = &list
		}
		if idx := findLine(cart.Items, product.ID, variant); idx >= 0 {
			existing := cart.Items[idx]
			item.Quantity += existing.Quantity
			item.AddedAt = existing.AddedAt
			cart.Items[idx] = item
		} else {
			cart.Items = append(cart.Items, item)
		}
		s.touch(cart, now)
		return nil
	})
	if err != nil {
		return domain.Cart{}, mapRepositoryError(err)
	}
	return s.derive(cart), nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartItemCommand) (domain.Cart, error) {
	uid, err := requireUser(cmd.UserID)
	if err != nil {
		return domain.Cart{}, err
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: productId is required", ErrValidation)
	}
	variant := strings.TrimSpace(cmd.Variant)

	now := s.clock()
	cart, err := s.carts.Mutate(ctx, uid, now, func(cart *domain.Cart) error {
		idx := findLine(cart.Items, productID, variant)
		if idx < 0 {
			return fmt.Errorf("%w: product %s is not in the cart", ErrNotFound, productID)
		}
		if cmd.Quantity <= 0 {
			cart.Items = slices.Delete(cart.Items, idx, idx+1)
		} else {
			cart.Items[idx].Quantity = cmd.Quantity
		}
		s.touch(cart, now)
		return nil
	})
	if err != nil {
		return domain.Cart{}, mapRepositoryError(err)
	}
	return s.derive(cart), nil
}

func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (domain.Cart, error) {
	uid, err := requireUser(cmd.UserID)
	if err != nil {
		return domain.Cart{}, err
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: productId is required", ErrValidation)
	}
	variant := strings.TrimSpace(cmd.Variant)

	now := s.clock()
	cart, err := s.carts.Mutate(ctx, uid, now, func(cart *domain.Cart) error {
		if idx := findLine(cart.Items, productID, variant); idx >= 0 {
			cart.Items = slices.Delete(cart.Items, idx, idx+1)
		}
		s.touch(cart, now)
		return nil
	})
	if err != nil {
		return domain.Cart{}, mapRepositoryError(err)
	}
	return s.derive(cart), nil
}

func (s *cartService) Clear(ctx context.Context, userID string) (domain.Cart, error) {
	uid, err := requireUser(userID)
	if err != nil {
		return domain.Cart{}, err
	}
	now := s.clock()
	cart, err := s.carts.Mutate(ctx, uid, now, func(cart *domain.Cart) error {
		cart.Items = []domain.CartItem{}
		s.touch(cart, now)
		return nil
	})
	if err != nil {
		return domain.Cart{}, mapRepositoryError(err)
	}
	return s.derive(cart), nil
}

// touch renews the expiry window and re-derives totals inside the mutation.
func (s *cartService) touch(cart *domain.Cart, now time.Time) {
	cart.ExpiresAt = now.Add(s.ttl)
	cart.UpdatedAt = now
	*cart = s.derive(*cart)
}

func (s *cartService) derive(cart domain.Cart) domain.Cart {
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	cart.Totals = s.pricing.Price(cartLines(cart.Items), PricingAdjustments{})
	count := 0
	for _, item := range cart.Items {
		count += item.Quantity
	}
	cart.ItemCount = count
	return cart
}

func findLine(items []domain.CartItem, productID, variant string) int {
	return slices.IndexFunc(items, func(item domain.CartItem) bool {
		return item.ProductID == productID && item.Variant == variant
	})
}

func requireUser(userID string) (string, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return "", fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return uid, nil
}
