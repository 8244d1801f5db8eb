package port

import (
	"context"

	"github.com/clx1415926/taobei-app/internal/core/domain"
)

// CatalogRepository exposes read access to the product catalog.
type CatalogRepository interface {
	HotProducts(ctx context.Context, limit int) ([]domain.Product, error)
	Search(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}
