// Command seed_catalog fills an empty database with a demo catalog.
// Run with: go run ./scripts
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	database "github.com/FACorreiaa/go-shop-backend/app/db"
	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/api/category"
	"github.com/FACorreiaa/go-shop-backend/internal/api/product"
	"github.com/FACorreiaa/go-shop-backend/internal/storage"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

type seedProduct struct {
	name, description, price string
	colors, sizes            []string
	newArrival               bool
}

type seedCategory struct {
	name          string
	subcategories []string
	products      []seedProduct
}

var catalog = []seedCategory{
	{
		name:          "Clothing",
		subcategories: []string{"T-Shirts", "Jackets"},
		products: []seedProduct{
			{name: "Basic Tee", description: "Heavyweight cotton tee.", price: "19.90", colors: []string{"black", "white"}, sizes: []string{"S", "M", "L"}},
			{name: "Rain Shell", description: "Packable waterproof jacket.", price: "89.00", colors: []string{"olive"}, sizes: []string{"M", "L"}, newArrival: true},
		},
	},
	{
		name:          "Footwear",
		subcategories: []string{"Running", "Casual"},
		products: []seedProduct{
			{name: "Trail Runner", description: "Grippy trail shoe.", price: "120.00", sizes: []string{"40", "41", "42", "43"}, newArrival: true},
		},
	},
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build database config: %v", err)
	}
	pool, err := database.Init(dbConfig, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		log.Fatalf("Failed to initialise storage: %v", err)
	}
	maxUpload := cfg.Storage.MaxUploadMB << 20
	categories := category.NewCategoryService(category.NewPostgresCategoryRepo(pool, logger), store, maxUpload, logger)
	products := product.NewProductService(product.NewPostgresProductRepo(pool, logger), store, maxUpload, logger)

	existing, err := categories.ListCategories(ctx)
	if err != nil {
		log.Fatalf("Failed to list categories: %v", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.Name] = true
	}

	for _, sc := range catalog {
		if seen[sc.name] {
			logger.Info("Category already present, skipping", slog.String("category", sc.name))
			continue
		}
		c, err := categories.CreateCategory(ctx, types.CategoryInput{Name: sc.name}, nil)
		if err != nil {
			log.Fatalf("Failed to create category %q: %v", sc.name, err)
		}
		for _, name := range sc.subcategories {
			if _, err := categories.CreateSubCategory(ctx, types.SubCategoryInput{Name: name, CategoryID: c.ID}); err != nil && !errors.Is(err, types.ErrConflict) {
				log.Fatalf("Failed to create subcategory %q: %v", name, err)
			}
		}
		for _, sp := range sc.products {
			price := decimal.RequireFromString(sp.price)
			inStock := true
			in := types.ProductInput{
				Name:        &sp.name,
				Description: &sp.description,
				Price:       &price,
				CategoryID:  &c.ID,
				Colors:      sp.colors,
				Sizes:       sp.sizes,
				InStock:     &inStock,
				NewArrival:  &sp.newArrival,
			}
			if _, err := products.CreateProduct(ctx, in, nil); err != nil {
				log.Fatalf("Failed to create product %q: %v", sp.name, err)
			}
		}
		logger.Info("Seeded category", slog.String("category", c.Name), slog.Int("products", len(sc.products)))
	}
}
