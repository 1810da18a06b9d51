package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ServiceName labels the storefront's metrics and spans.
const ServiceName = "storefront"

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Users    *service.UserService
	Products *service.ProductService
	Carts    *service.CartService
	Orders   *service.OrderService

	Health   *health.Handler
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
	// AuthLimiter throttles the auth endpoints. Nil disables throttling.
	AuthLimiter *middleware.RateLimiter

	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter creates a chi router with every storefront route registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	authenticate := Authenticator(cfg.Users)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogging(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}
	r.Use(chimw.Compress(5, "application/json"))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authHandler := NewAuthHandler(cfg.Users, logger)
	userHandler := NewUserHandler(cfg.Users, logger)
	productHandler := NewProductHandler(cfg.Products, logger)
	cartHandler := NewCartHandler(cfg.Carts, logger)
	orderHandler := NewOrderHandler(cfg.Orders, logger)
	pageHandler := NewPageHandler(cfg.Users, productHandler, cfg.Carts, cfg.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Handler)
			}
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequestLogger(logger))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(authenticate))
				r.Use(middleware.RequestLogger(logger))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Anonymous-friendly routes: claims are attached when a token is sent.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(authenticate))
			r.Use(middleware.RequestLogger(logger))

			r.With(middleware.CacheControl(30)).Get("/products", productHandler.List)
			r.With(middleware.CacheControl(30)).Get("/products/{id}", productHandler.Get)
			r.Get("/pages", pageHandler.Resolve)
			r.Get("/pages/*", pageHandler.Resolve)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authenticate))
			r.Use(middleware.RequestLogger(logger))

			r.Get("/users/me", userHandler.GetProfile)
			r.Put("/users/me", userHandler.UpdateProfile)

			r.With(middleware.RequireRole(domain.ProductCreatorRoles()...)).Post("/products", productHandler.Create)

			r.Get("/cart", cartHandler.Get)
			r.Get("/cart/count", cartHandler.Count)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Patch("/cart/items/{id}", cartHandler.ChangeQuantity)
			r.Delete("/cart/items/{id}", cartHandler.RemoveItem)

			r.Get("/orders", orderHandler.List)
			r.Post("/orders", orderHandler.Checkout)
			r.Get("/orders/{id}", orderHandler.Get)
			r.Get("/orders/{id}/receipt", orderHandler.Receipt)
		})
	})

	return r
}
