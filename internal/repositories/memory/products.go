package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// ProductRepository is a read-only catalog seeded at construction.
type ProductRepository struct {
	closed *atomic.Bool

	mu       sync.RWMutex
	products map[string]domain.Product
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

func newProductRepository(closed *atomic.Bool, seed []domain.Product) *ProductRepository {
	repo := &ProductRepository{closed: closed, products: make(map[string]domain.Product, len(seed))}
	for _, product := range seed {
		if id := strings.TrimSpace(product.ID); id != "" {
			repo.products[id] = product
		}
	}
	return repo
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if r.closed.Load() {
		return domain.Product{}, unavailable("products.get")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[strings.TrimSpace(productID)]
	if !ok {
		return domain.Product{}, notFound("products.get", "product %s not found", productID)
	}
	product.Variants = append([]string(nil), product.Variants...)
	return product, nil
}

type catalogEntry struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	Image     string           `json:"image"`
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty"`
	Variants  []string         `json:"variants,omitempty"`
	Active    *bool            `json:"active,omitempty"`
}

// LoadCatalog reads a JSON array of products. Entries default to active.
func LoadCatalog(path string) ([]domain.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes catalog JSON.
func ParseCatalog(raw []byte) ([]domain.Product, error) {
	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("memory: decode catalog: %w", err)
	}
	products := make([]domain.Product, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.ID) == "" {
			return nil, fmt.Errorf("memory: catalog entry %d missing id", i)
		}
		if entry.Price.IsNegative() {
			return nil, fmt.Errorf("memory: catalog entry %s has negative price", entry.ID)
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		products = append(products, domain.Product{
			ID:        strings.TrimSpace(entry.ID),
			Name:      entry.Name,
			Slug:      entry.Slug,
			Image:     entry.Image,
			Price:     entry.Price,
			SalePrice: entry.SalePrice,
			Variants:  entry.Variants,
			Active:    active,
		})
	}
	return products, nil
}
