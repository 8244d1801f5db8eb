package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/clx1415926/taobei-app/internal/core/domain"
)

func newCatalogEnv(t *testing.T) *CatalogService {
	t.Helper()
	repo := &stubCatalogRepo{
		products: []domain.Product{
			{ID: "p-1", Name: "无线蓝牙耳机", CategoryID: "c-1", PriceFen: 12900, IsHot: true},
			{ID: "p-2", Name: "保温杯", CategoryID: "c-2", PriceFen: 5900, IsHot: true},
			{ID: "p-3", Name: "充电宝", CategoryID: "c-1", PriceFen: 9900},
		},
		categories: []domain.Category{
			{ID: "c-1", Name: "数码", ProductCount: 2},
			{ID: "c-2", Name: "家居", ProductCount: 1},
		},
	}
	return NewCatalogService(repo, zaptest.NewLogger(t))
}

func TestHomepage(t *testing.T) {
	svc := newCatalogEnv(t)

	view, err := svc.Homepage(context.Background())
	if err != nil {
		t.Fatalf("Homepage returned error: %v", err)
	}
	if len(view.Banners) == 0 {
		t.Fatal("expected banners")
	}
	if len(view.HotProducts) != 2 {
		t.Fatalf("hot products = %d, want 2", len(view.HotProducts))
	}
	if len(view.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(view.Categories))
	}
}

func TestSearchFiltersByCategory(t *testing.T) {
	svc := newCatalogEnv(t)

	page, err := svc.Search(context.Background(), domain.ProductQuery{CategoryID: "c-1"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Total)
	}
	for _, product := range page.Items {
		if product.CategoryID != "c-1" {
			t.Fatalf("unexpected category %s in results", product.CategoryID)
		}
	}
}

func TestProductByID(t *testing.T) {
	svc := newCatalogEnv(t)

	product, err := svc.ProductByID(context.Background(), "p-3")
	if err != nil {
		t.Fatalf("ProductByID returned error: %v", err)
	}
	if product.PriceFen != 9900 {
		t.Fatalf("PriceFen = %d, want 9900", product.PriceFen)
	}

	if _, err := svc.ProductByID(context.Background(), "missing"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductSortNormalize(t *testing.T) {
	cases := map[domain.ProductSort]domain.ProductSort{
		"":                      domain.SortBySales,
		domain.SortByRelevance:  domain.SortBySales,
		domain.SortBySales:      domain.SortBySales,
		domain.SortByPriceAsc:   domain.SortByPriceAsc,
		domain.SortByPriceDesc:  domain.SortByPriceDesc,
		domain.SortByNewest:     domain.SortByNewest,
		domain.ProductSort("x"): domain.SortBySales,
	}
	for input, want := range cases {
		if got := input.Normalize(); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}
