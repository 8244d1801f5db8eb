// Command seed applies the database schema and loads the demo catalog.
// It is safe to run repeatedly: the schema statements are idempotent and
// catalog data is only inserted into an empty catalog.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/infra/config"
	"github.com/clx1415926/taobei-app/internal/infra/database"
	"github.com/clx1415926/taobei-app/internal/infra/logger"
	"github.com/clx1415926/taobei-app/migrations"
)

type seedCategory struct {
	id        string
	name      string
	icon      string
	sortOrder int
}

type seedProduct struct {
	id          string
	name        string
	description string
	priceFen    int64
	originalFen *int64
	imageURL    string
	categoryID  string
	salesCount  int
	stock       int
	isHot       bool
}

var seedCategories = []seedCategory{
	{"cat-digital", "数码电器", "📱", 1},
	{"cat-fashion", "服装鞋包", "👕", 2},
	{"cat-home", "家居生活", "🏠", 3},
	{"cat-beauty", "美妆护肤", "💄", 4},
	{"cat-food", "食品饮料", "🍎", 5},
	{"cat-sports", "运动户外", "⚽", 6},
}

func fen(yuan int64) *int64 {
	v := yuan * 100
	return &v
}

var seedProducts = []seedProduct{
	{"prod-iphone15pro", "iPhone 15 Pro", "最新款苹果手机，性能强劲", 799900, fen(8999), "/images/iphone15pro.jpg", "cat-digital", 1250, 100, true},
	{"prod-mi14ultra", "小米14 Ultra", "徕卡影像，旗舰性能", 599900, fen(6499), "/images/mi14ultra.jpg", "cat-digital", 890, 150, true},
	{"prod-uniqlo-tshirt", "优衣库基础T恤", "舒适纯棉，多色可选", 5900, fen(79), "/images/uniqlo-tshirt.jpg", "cat-fashion", 2340, 500, true},
	{"prod-dyson-v15", "戴森吸尘器V15", "强劲吸力，智能清洁", 399000, fen(4490), "/images/dyson-v15.jpg", "cat-home", 567, 80, true},
	{"prod-estee-lauder", "雅诗兰黛小棕瓶", "修护精华，抗衰老", 68000, fen(780), "/images/estee-lauder.jpg", "cat-beauty", 1890, 200, true},
	{"prod-nuts-gift", "三只松鼠坚果礼盒", "精选坚果，健康美味", 12800, fen(158), "/images/nuts-gift.jpg", "cat-food", 3450, 300, true},
	{"prod-nike-shoes", "耐克运动鞋", "舒适透气，运动首选", 59900, fen(699), "/images/nike-shoes.jpg", "cat-sports", 1120, 120, true},
	{"prod-macbook-air", "MacBook Air M2", "轻薄便携，性能卓越", 899900, fen(9999), "/images/macbook-air.jpg", "cat-digital", 780, 50, true},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zlog)
	if err != nil {
		zlog.Fatal("failed to init postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := applyMigrations(ctx, pool, zlog); err != nil {
		zlog.Fatal("failed to apply migrations", zap.Error(err))
	}

	if err := seedCatalog(ctx, pool, zlog); err != nil {
		zlog.Fatal("failed to seed catalog", zap.Error(err))
	}

	zlog.Info("seed complete")
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool, zlog *zap.Logger) error {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		zlog.Info("applied migration", zap.String("file", name))
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, zlog *zap.Logger) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM taobei.categories").Scan(&count); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		zlog.Info("catalog already seeded, skipping", zap.Int("categories", count))
		return nil
	}

	for _, c := range seedCategories {
		if _, err := pool.Exec(ctx,
			"INSERT INTO taobei.categories (id, name, icon, sort_order) VALUES ($1, $2, $3, $4)",
			c.id, c.name, c.icon, c.sortOrder,
		); err != nil {
			return fmt.Errorf("insert category %s: %w", c.id, err)
		}
	}

	products := append([]seedProduct{}, seedProducts...)
	products = append(products, fillerProducts(50)...)

	for _, p := range products {
		if _, err := pool.Exec(ctx,
			`INSERT INTO taobei.products
				(id, name, description, price_fen, original_fen, category_id, image_url, sales_count, stock, is_hot)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			p.id, p.name, p.description, p.priceFen, p.originalFen, p.categoryID, p.imageURL, p.salesCount, p.stock, p.isHot,
		); err != nil {
			return fmt.Errorf("insert product %s: %w", p.id, err)
		}
	}

	zlog.Info("seeded catalog",
		zap.Int("categories", len(seedCategories)),
		zap.Int("products", len(products)),
	)
	return nil
}

// fillerProducts generates plain non-hot products spread across the
// categories so list pages have something to paginate.
func fillerProducts(n int) []seedProduct {
	rng := rand.New(rand.NewSource(42))
	products := make([]seedProduct, 0, n)

	for i := 0; i < n; i++ {
		idx := i + len(seedProducts) + 1
		category := seedCategories[rng.Intn(len(seedCategories))]
		products = append(products, seedProduct{
			id:          fmt.Sprintf("prod-%03d", idx),
			name:        fmt.Sprintf("商品%d", idx),
			description: fmt.Sprintf("这是商品%d的详细描述", idx),
			priceFen:    int64(rng.Intn(1000)+50) * 100,
			imageURL:    fmt.Sprintf("/images/product%d.jpg", idx),
			categoryID:  category.id,
			salesCount:  rng.Intn(500),
			stock:       rng.Intn(100) + 10,
		})
	}

	return products
}
