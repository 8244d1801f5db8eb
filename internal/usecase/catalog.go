package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/core/port"
	"github.com/clx1415926/taobei-app/internal/repository"
)

// ErrProductNotFound indicates the requested product does not exist.
var ErrProductNotFound = errors.New("product not found")

const homepageHotLimit = 10

// homepageBanners is the static promotion carousel. Content is operated by
// hand until a CMS exists.
var homepageBanners = []domain.Banner{
	{ID: "banner-1", Title: "新人专享礼包", ImageURL: "/static/banners/newcomer.jpg", LinkURL: "/pages/promo/newcomer"},
	{ID: "banner-2", Title: "限时秒杀", ImageURL: "/static/banners/flash-sale.jpg", LinkURL: "/pages/promo/flash-sale"},
	{ID: "banner-3", Title: "品牌直供", ImageURL: "/static/banners/brands.jpg", LinkURL: "/pages/promo/brands"},
}

// HomepageView aggregates everything the storefront landing page renders.
type HomepageView struct {
	Banners     []domain.Banner
	HotProducts []domain.Product
	Categories  []domain.Category
}

// CatalogService exposes read-only product browsing for the storefront.
type CatalogService struct {
	catalog port.CatalogRepository
	logger  *zap.Logger
}

// NewCatalogService wires the service with its repository.
func NewCatalogService(catalog port.CatalogRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, logger: logger}
}

// Homepage assembles banners, hot products, and categories in one call.
func (s *CatalogService) Homepage(ctx context.Context) (*HomepageView, error) {
	hot, err := s.catalog.HotProducts(ctx, homepageHotLimit)
	if err != nil {
		return nil, fmt.Errorf("load hot products: %w", err)
	}

	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	return &HomepageView{
		Banners:     homepageBanners,
		HotProducts: hot,
		Categories:  categories,
	}, nil
}

// Search runs a keyword/category query with pagination.
func (s *CatalogService) Search(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error) {
	page, err := s.catalog.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return page, nil
}

// Categories lists all categories with product counts.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories, nil
}

// ProductByID returns one product's detail.
func (s *CatalogService) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	return product, nil
}
