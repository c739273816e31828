package router

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appMiddleware "github.com/FACorreiaa/go-shop-backend/app/middleware"
	_ "github.com/FACorreiaa/go-shop-backend/docs"
	"github.com/FACorreiaa/go-shop-backend/internal/api/analytics"
	"github.com/FACorreiaa/go-shop-backend/internal/api/auth"
	"github.com/FACorreiaa/go-shop-backend/internal/api/cart"
	"github.com/FACorreiaa/go-shop-backend/internal/api/category"
	"github.com/FACorreiaa/go-shop-backend/internal/api/coupon"
	"github.com/FACorreiaa/go-shop-backend/internal/api/order"
	"github.com/FACorreiaa/go-shop-backend/internal/api/product"
	"github.com/FACorreiaa/go-shop-backend/internal/api/user"
	"github.com/FACorreiaa/go-shop-backend/internal/api/wishlist"
	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler      *auth.HandlerImpl
	UserHandler      *user.HandlerImpl
	CategoryHandler  *category.HandlerImpl
	ProductHandler   *product.HandlerImpl
	CartHandler      *cart.HandlerImpl
	WishlistHandler  *wishlist.HandlerImpl
	CouponHandler    *coupon.HandlerImpl
	OrderHandler     *order.HandlerImpl
	AnalyticsHandler *analytics.HandlerImpl

	AuthenticateMiddleware func(http.Handler) http.Handler
	Logger                 *slog.Logger

	AllowedOrigins []string
	AuthRequests   int
	AuthWindow     time.Duration
	// StaticDir is served under StaticURL when uploads live on local disk. Empty disables it.
	StaticDir string
	StaticURL string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (request ID, logging, recoverer) is applied in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if cfg.StaticDir != "" {
		prefix := "/" + strings.Trim(cfg.StaticURL, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(cfg.StaticDir))))
	}

	authLimit := appMiddleware.RateLimitByIP(cfg.Logger, cfg.AuthRequests, cfg.AuthWindow)
	adminOnly := auth.RequireRoles(cfg.Logger, types.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// --- Public routes ---
		r.Group(func(r chi.Router) {
			r.Post("/signUp", cfg.AuthHandler.SignUp)
			r.With(authLimit).Post("/login", cfg.AuthHandler.Login)
			r.With(authLimit).Post("/forgot-password", cfg.AuthHandler.ForgotPassword)
			r.Post("/reset-password", cfg.AuthHandler.ResetPassword)
			r.Get("/auth/{provider}", cfg.AuthHandler.BeginOAuth)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.OAuthCallback)

			r.Get("/categories", cfg.CategoryHandler.ListCategories)
			r.Get("/categories/subcategory", cfg.CategoryHandler.ListSubCategories)
			r.Get("/categories/{id}", cfg.CategoryHandler.GetCategory)

			r.Get("/products", cfg.ProductHandler.ListProducts)
			r.Get("/products/new-arrivals", cfg.ProductHandler.ListNewArrivals)
			r.Get("/products/{id}", cfg.ProductHandler.GetProduct)
		})

		// --- Authenticated routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/me", cfg.AuthHandler.Me)
			r.Put("/me", cfg.UserHandler.UpdateProfile)
			r.Post("/me/avatar", cfg.UserHandler.UploadAvatar)
			r.Get("/me/settings", cfg.UserHandler.GetSettings)
			r.Put("/me/settings", cfg.UserHandler.UpdateSettings)
			r.Post("/change-password", cfg.AuthHandler.ChangePassword)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.CartHandler.GetCart)
				r.Post("/", cfg.CartHandler.AddItem)
				r.Delete("/", cfg.CartHandler.ClearCart)
				r.Put("/{itemID}", cfg.CartHandler.UpdateItem)
				r.Delete("/{itemID}", cfg.CartHandler.RemoveItem)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", cfg.WishlistHandler.ListItems)
				r.Post("/", cfg.WishlistHandler.AddItem)
				r.Delete("/{productID}", cfg.WishlistHandler.RemoveItem)
			})

			r.Post("/coupons/validate", cfg.CouponHandler.ValidateCoupon)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", cfg.OrderHandler.Checkout)
				r.Get("/", cfg.OrderHandler.ListMyOrders)
				r.Get("/{id}", cfg.OrderHandler.GetOrder)
				r.Get("/{id}/tracking", cfg.OrderHandler.GetTracking)
				r.Post("/{id}/cancel", cfg.OrderHandler.CancelOrder)
				r.With(auth.RequireRoles(cfg.Logger, types.RoleAdmin, types.RoleMerchant)).
					Post("/{id}/tracking", cfg.OrderHandler.AppendTracking)
			})

			// --- Fulfilment ---
			r.With(auth.RequireRoles(cfg.Logger, types.RoleAdmin, types.RoleMerchant)).
				Get("/fulfillment/orders", cfg.OrderHandler.ListOrders)
			r.With(auth.RequireRoles(cfg.Logger, types.RoleMerchant)).
				Get("/merchant/queue", cfg.OrderHandler.MerchantQueue)

			// --- Admin routes ---
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Get("/users", cfg.UserHandler.ListUsers)
				r.Get("/users/{id}", cfg.UserHandler.GetUser)
				r.Put("/users/{id}/role", cfg.UserHandler.UpdateRole)

				r.Post("/categories", cfg.CategoryHandler.CreateCategory)
				r.Post("/categories/subcategory", cfg.CategoryHandler.CreateSubCategory)
				r.Put("/categories/subcategory/{id}", cfg.CategoryHandler.UpdateSubCategory)
				r.Delete("/categories/subcategory/{id}", cfg.CategoryHandler.DeleteSubCategory)
				r.Put("/categories/{id}", cfg.CategoryHandler.UpdateCategory)
				r.Delete("/categories/{id}", cfg.CategoryHandler.DeleteCategory)

				r.Post("/products", cfg.ProductHandler.CreateProduct)
				r.Put("/products/{id}", cfg.ProductHandler.UpdateProduct)
				r.Delete("/products/{id}", cfg.ProductHandler.DeleteProduct)

				r.Get("/coupons", cfg.CouponHandler.ListCoupons)
				r.Post("/coupons", cfg.CouponHandler.CreateCoupon)
				r.Get("/coupons/{id}", cfg.CouponHandler.GetCoupon)
				r.Put("/coupons/{id}", cfg.CouponHandler.UpdateCoupon)
				r.Delete("/coupons/{id}", cfg.CouponHandler.DeleteCoupon)

				r.Route("/admin/analytics", func(r chi.Router) {
					r.Get("/monthly-orders", cfg.AnalyticsHandler.MonthlyOrders)
					r.Get("/daily-orders", cfg.AnalyticsHandler.DailyOrders)
					r.Get("/top-customers", cfg.AnalyticsHandler.TopCustomers)
					r.Get("/summary", cfg.AnalyticsHandler.Summary)
				})
			})
		})
	})

	return r
}
