package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/repository"
	"github.com/clx1415926/taobei-app/internal/usecase"
)

// CatalogHandler exposes the public storefront browsing endpoints. All of
// them are read-only and require no authentication.
type CatalogHandler struct {
	catalog *usecase.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *usecase.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterRoutes binds catalog routes under the supplied group.
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/homepage", h.homepage)
	r.GET("/products", h.search)
	r.GET("/products/:id", h.productByID)
	r.GET("/categories", h.categories)
}

var catalogErrorCases = []ErrorCase{
	{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
}

// Homepage godoc
// @Summary Storefront landing page data
// @Description Returns banners, hot products, and categories in one payload.
// @Tags Catalog
// @Produce json
// @Success 200 {object} HomepageResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/homepage [get]
func (h *CatalogHandler) homepage(c *gin.Context) {
	view, err := h.catalog.Homepage(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, catalogErrorCases, http.StatusInternalServerError, "failed to load homepage")
		return
	}

	c.JSON(http.StatusOK, HomepageResponse{
		Banners:     newBannerPayloads(view.Banners),
		HotProducts: newProductPayloads(view.HotProducts),
		Categories:  newCategoryPayloads(view.Categories),
	})
}

// SearchProducts godoc
// @Summary Search products
// @Tags Catalog
// @Produce json
// @Param keyword query string false "Keyword matched against name and description"
// @Param category_id query string false "Restrict to one category"
// @Param sort query string false "sales | price_asc | price_desc | newest"
// @Param page query int false "1-based page number"
// @Param page_size query int false "Items per page"
// @Success 200 {object} ProductSearchResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/products [get]
func (h *CatalogHandler) search(c *gin.Context) {
	query := domain.ProductQuery{
		Keyword:    strings.TrimSpace(c.Query("keyword")),
		CategoryID: strings.TrimSpace(c.Query("category_id")),
		Sort:       domain.ProductSort(c.Query("sort")),
		Page:       intQuery(c, "page", 1),
		PageSize:   intQuery(c, "page_size", 20),
	}

	page, err := h.catalog.Search(c.Request.Context(), query)
	if err != nil {
		RespondWithMappedError(c, err, catalogErrorCases, http.StatusInternalServerError, "failed to search products")
		return
	}

	c.JSON(http.StatusOK, ProductSearchResponse{
		Items:    newProductPayloads(page.Items),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// ProductByID godoc
// @Summary Fetch one product
// @Tags Catalog
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} ProductPayload
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/products/{id} [get]
func (h *CatalogHandler) productByID(c *gin.Context) {
	product, err := h.catalog.ProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrProductNotFound, Status: http.StatusNotFound, Message: "product not found"},
		}, catalogErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to load product")
		return
	}

	c.JSON(http.StatusOK, newProductPayload(*product))
}

// Categories godoc
// @Summary List all categories
// @Tags Catalog
// @Produce json
// @Success 200 {object} CategoryListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/categories [get]
func (h *CatalogHandler) categories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, catalogErrorCases, http.StatusInternalServerError, "failed to load categories")
		return
	}

	c.JSON(http.StatusOK, CategoryListResponse{Categories: newCategoryPayloads(categories)})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
