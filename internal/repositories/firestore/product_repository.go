package firestore

import (
	"context"
	"strings"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	pfirestore "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/firestore"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// ProductRepository reads catalog entries from products/{productId}.
type ProductRepository struct {
	products *pfirestore.Collection[productDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID)
}
