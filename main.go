package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/FACorreiaa/go-shop-backend/app/db"
	appLogger "github.com/FACorreiaa/go-shop-backend/app/logger"
	appMiddleware "github.com/FACorreiaa/go-shop-backend/app/middleware"
	"github.com/FACorreiaa/go-shop-backend/app/observability/metrics"
	"github.com/FACorreiaa/go-shop-backend/app/tracer"
	"github.com/FACorreiaa/go-shop-backend/config"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/container"
	"github.com/FACorreiaa/go-shop-backend/internal/router"
)

// @title                      Shop API
// @version                    1.0
// @description                E-commerce backend: catalog, cart, wishlist, coupons and order tracking.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	if cfg.Metrics.Enabled {
		providers, err := tracer.InitTracingAndMetrics(cfg.Metrics.ServiceName, cfg.Metrics.Port, logger)
		if err != nil {
			logger.Error("Failed to initialize observability", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Observability shutdown failed", slog.Any("error", err))
			}
		}()
	}
	metrics.InitAppMetrics()

	// --- Database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}
	// Migrations run before the main pool is opened.
	if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	c, err := container.NewContainer(ctx, &cfg, logger)
	if err != nil {
		logger.Error("Failed to build application container", slog.Any("error", err))
		os.Exit(1)
	}
	defer c.Close()

	if !c.WaitForDB(ctx) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	if err := c.AuthService.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Error("Failed to seed admin account", slog.Any("error", err))
		os.Exit(1)
	}
	auth.SetupOAuthProviders(cfg.OAuth, cfg.Mode == "production", logger)

	// --- Router ---
	routerConfig := &router.Config{
		AuthHandler:            c.AuthHandler,
		UserHandler:            c.UserHandler,
		CategoryHandler:        c.CategoryHandler,
		ProductHandler:         c.ProductHandler,
		CartHandler:            c.CartHandler,
		WishlistHandler:        c.WishlistHandler,
		CouponHandler:          c.CouponHandler,
		OrderHandler:           c.OrderHandler,
		AnalyticsHandler:       c.AnalyticsHandler,
		AuthenticateMiddleware: c.Authenticate(),
		Logger:                 logger,
		AllowedOrigins:         cfg.CORS.AllowedOrigins,
		AuthRequests:           cfg.RateLimit.AuthRequests,
		AuthWindow:             cfg.RateLimit.AuthWindow,
	}
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "disk" {
		routerConfig.StaticDir = cfg.Storage.Dir
		routerConfig.StaticURL = cfg.Storage.PublicURL
	}

	timeout := cfg.Server.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(appMiddleware.RequestMetrics)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", router.SetupRouter(routerConfig))

	// --- HTTP Server ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:              serverAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}
	c.AuthService.WaitForMail()
	logger.Info("Application shut down complete.")
}

// setupLogger uses colored tint output in development and JSON everywhere else.
func setupLogger(mode string) *slog.Logger {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = mode
	}

	if env == "development" || env == "" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
