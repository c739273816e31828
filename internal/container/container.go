package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-shop-backend/app/db"
	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/api/analytics"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/api/cart"
	"github.com/FACorreiaa/go-shop-backend/internal/api/category"
	"github.com/FACorreiaa/go-shop-backend/internal/api/coupon"
	"github.com/FACorreiaa/go-shop-backend/internal/api/order"
	"github.com/FACorreiaa/go-shop-backend/internal/api/product"
	"github.com/FACorreiaa/go-shop-backend/internal/api/user"
	"github.com/FACorreiaa/go-shop-backend/internal/api/wishlist"
	"github.com/FACorreiaa/go-shop-backend/internal/mail"
	"github.com/FACorreiaa/go-shop-backend/internal/storage"
)

// Products accept several images per request.
const maxProductImages = 8

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Storage storage.Storage

	AuthService *auth.AuthServiceImpl

	AuthHandler      *auth.HandlerImpl
	UserHandler      *user.HandlerImpl
	CategoryHandler  *category.HandlerImpl
	ProductHandler   *product.HandlerImpl
	CartHandler      *cart.HandlerImpl
	WishlistHandler  *wishlist.HandlerImpl
	CouponHandler    *coupon.HandlerImpl
	OrderHandler     *order.HandlerImpl
	AnalyticsHandler *analytics.HandlerImpl
}

// NewContainer opens the pool and builds every repository, service and handler.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	c, err := Build(pool, store, mail.NewSender(cfg.Mail, logger), cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// Build wires the object graph over db. NewContainer calls it with a live pool.
func Build(db database.DB, store storage.Storage, mailer mail.Sender, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	maxUpload := cfg.Storage.MaxUploadMB << 20
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("initializing token service: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	authRepo := auth.NewPostgresAuthRepo(db, logger)
	authService := auth.NewAuthService(authRepo, tokens, hasher, mailer, cfg.Auth, logger)
	authHandler := auth.NewHandlerImpl(authService, logger)

	userRepo := user.NewPostgresUserRepo(db, logger)
	userService := user.NewUserService(userRepo, store, maxUpload, logger)
	userHandler := user.NewHandlerImpl(userService, maxUpload, logger)

	categoryRepo := category.NewPostgresCategoryRepo(db, logger)
	categoryService := category.NewCategoryService(categoryRepo, store, maxUpload, logger)
	categoryHandler := category.NewHandlerImpl(categoryService, maxUpload, logger)

	productRepo := product.NewPostgresProductRepo(db, logger)
	productService := product.NewProductService(productRepo, store, maxUpload, logger)
	productHandler := product.NewHandlerImpl(productService, maxUpload*maxProductImages+1<<20, logger)

	cartRepo := cart.NewPostgresCartRepo(db, logger)
	cartService := cart.NewCartService(cartRepo, logger)
	cartHandler := cart.NewHandlerImpl(cartService, logger)

	wishlistRepo := wishlist.NewPostgresWishlistRepo(db, logger)
	wishlistService := wishlist.NewWishlistService(wishlistRepo, logger)
	wishlistHandler := wishlist.NewHandlerImpl(wishlistService, logger)

	couponRepo := coupon.NewPostgresCouponRepo(db, logger)
	couponService := coupon.NewCouponService(couponRepo, logger)
	couponHandler := coupon.NewHandlerImpl(couponService, logger)

	// Checkout reads the cart and coupon tables directly through their repos.
	orderRepo := order.NewPostgresOrderRepo(db, logger)
	orderService := order.NewOrderService(orderRepo, cartRepo, couponRepo, logger)
	orderHandler := order.NewHandlerImpl(orderService, logger)

	analyticsRepo := analytics.NewPostgresAnalyticsRepo(db, logger)
	analyticsService := analytics.NewAnalyticsService(analyticsRepo, logger)
	analyticsHandler := analytics.NewHandlerImpl(analyticsService, logger)

	c := &Container{
		Config:           cfg,
		Logger:           logger,
		Storage:          store,
		AuthService:      authService,
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		CategoryHandler:  categoryHandler,
		ProductHandler:   productHandler,
		CartHandler:      cartHandler,
		WishlistHandler:  wishlistHandler,
		CouponHandler:    couponHandler,
		OrderHandler:     orderHandler,
		AnalyticsHandler: analyticsHandler,
	}
	if pool, ok := db.(*pgxpool.Pool); ok {
		c.Pool = pool
	}
	return c, nil
}

// Authenticate is the bearer-token middleware bound to this container's auth service.
func (c *Container) Authenticate() func(http.Handler) http.Handler {
	return auth.Authenticate(c.AuthService, c.Logger)
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
