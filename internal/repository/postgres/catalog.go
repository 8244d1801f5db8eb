package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/core/port"
	"github.com/clx1415926/taobei-app/internal/repository"
)

// CatalogRepository implements port.CatalogRepository for PostgreSQL.
type CatalogRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var productColumns = []string{
	"id",
	"name",
	"description",
	"price_fen",
	"original_fen",
	"category_id",
	"image_url",
	"sales_count",
	"stock",
	"is_hot",
	"created_at",
	"updated_at",
}

// HotProducts returns up to limit products flagged for the homepage, best sellers first.
func (r *CatalogRepository) HotProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	sql, args, err := r.builder.
		Select(productColumns...).
		From("taobei.products").
		Where(squirrel.Eq{"is_hot": true}).
		OrderBy("sales_count DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select hot products sql: %w", err)
	}

	return r.queryProducts(ctx, sql, args)
}

// Search runs a keyword/category query with the requested ordering and page.
func (r *CatalogRepository) Search(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error) {
	base := r.builder.
		Select(productColumns...).
		From("taobei.products")
	countQ := r.builder.
		Select("COUNT(*)").
		From("taobei.products")

	if query.Keyword != "" {
		pattern := "%" + query.Keyword + "%"
		cond := squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"description": pattern},
		}
		base = base.Where(cond)
		countQ = countQ.Where(cond)
	}
	if query.CategoryID != "" {
		base = base.Where(squirrel.Eq{"category_id": query.CategoryID})
		countQ = countQ.Where(squirrel.Eq{"category_id": query.CategoryID})
	}

	switch query.Sort.Normalize() {
	case domain.SortByPriceAsc:
		base = base.OrderBy("price_fen ASC")
	case domain.SortByPriceDesc:
		base = base.OrderBy("price_fen DESC")
	case domain.SortByNewest:
		base = base.OrderBy("created_at DESC")
	default:
		base = base.OrderBy("sales_count DESC")
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size < 1 {
		size = 20
	}
	base = base.Limit(uint64(size)).Offset(uint64((page - 1) * size))

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count products sql: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, mapError("count products", err)
	}

	sql, args, err := base.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search products sql: %w", err)
	}

	items, err := r.queryProducts(ctx, sql, args)
	if err != nil {
		return nil, err
	}

	return &domain.ProductPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: size,
	}, nil
}

// ListCategories returns all categories with live product counts.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const sql = `SELECT c.id, c.name, c.icon, c.sort_order, COUNT(p.id)
		FROM taobei.categories c
		LEFT JOIN taobei.products p ON p.category_id = c.id
		GROUP BY c.id, c.name, c.icon, c.sort_order
		ORDER BY c.sort_order ASC`

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, mapError("query categories", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Icon,
			&category.SortOrder,
			&category.ProductCount,
		); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

// GetProduct returns a single product by identifier.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	sql, args, err := r.builder.
		Select(productColumns...).
		From("taobei.products").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select product sql: %w", err)
	}

	row := r.pool.QueryRow(ctx, sql, args...)

	var product domain.Product
	if err := scanProduct(row, &product); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, mapError("scan product", err)
	}

	return &product, nil
}

func (r *CatalogRepository) queryProducts(ctx context.Context, sql string, args []any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError("query products", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var product domain.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func scanProduct(row pgx.Row, product *domain.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.PriceFen,
		&product.OriginalFen,
		&product.CategoryID,
		&product.ImageURL,
		&product.SalesCount,
		&product.Stock,
		&product.IsHot,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

var _ port.CatalogRepository = (*CatalogRepository)(nil)
