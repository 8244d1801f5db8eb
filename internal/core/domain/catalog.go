package domain

import "time"

// Category groups products for storefront navigation.
type Category struct {
	ID           string
	Name         string
	Icon         string
	SortOrder    int
	ProductCount int
}

// Product mirrors the persisted representation in the products table.
// Prices are stored in fen (1/100 yuan) to avoid float arithmetic.
type Product struct {
	ID            string
	Name          string
	Description   string
	PriceFen      int64
	OriginalFen   *int64
	CategoryID    string
	ImageURL      string
	SalesCount    int
	Stock         int
	IsHot         bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Banner is a static homepage promotion slot.
type Banner struct {
	ID       string
	Title    string
	ImageURL string
	LinkURL  string
}

// ProductSort enumerates supported search orderings.
type ProductSort string

const (
	SortBySales     ProductSort = "sales"
	SortByPriceAsc  ProductSort = "price_asc"
	SortByPriceDesc ProductSort = "price_desc"
	SortByNewest    ProductSort = "newest"
	SortByRelevance ProductSort = "relevance"
)

// Normalize maps unknown or relevance sorts onto the sales ordering.
func (s ProductSort) Normalize() ProductSort {
	switch s {
	case SortByPriceAsc, SortByPriceDesc, SortByNewest, SortBySales:
		return s
	}
	return SortBySales
}

// ProductQuery carries search parameters for the catalog.
type ProductQuery struct {
	Keyword    string
	CategoryID string
	Sort       ProductSort
	Page       int
	PageSize   int
}

// ProductPage is one page of search results plus the total match count.
type ProductPage struct {
	Items    []Product
	Total    int
	Page     int
	PageSize int
}
