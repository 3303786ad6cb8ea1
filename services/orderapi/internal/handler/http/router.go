package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/agrostore/pkg/health"
	"github.com/utafrali/agrostore/pkg/middleware"
	"github.com/utafrali/agrostore/services/orderapi/internal/service"
)

const serviceName = "orderapi"

// RouterConfig carries the cross-cutting settings of the router.
type RouterConfig struct {
	JWT  middleware.JWTConfig
	CORS middleware.CORSConfig

	// RateLimiter throttles /api per client IP; nil disables it.
	RateLimiter *middleware.RateLimiter

	// CatalogMaxAge is the Cache-Control max-age for catalog reads, in seconds.
	CatalogMaxAge int

	PprofCIDRs []string
}

// NewRouter creates a chi router with all order API routes registered.
func NewRouter(
	orderService *service.OrderService,
	catalogService *service.CatalogService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	orderHandler := NewOrderHandler(orderService, logger)
	catalogHandler := NewCatalogHandler(catalogService, logger)

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}

		r.Get("/health", healthHandler.PingHandler())

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.JWT, logger))

			r.Get("/orders", orderHandler.ListOrders)
			r.Post("/orders", orderHandler.CreateOrder)
			r.Get("/orders/{id}", orderHandler.GetOrder)

			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(cfg.CatalogMaxAge))

				r.Get("/products", catalogHandler.ListProducts)
				r.Get("/products/{id}", catalogHandler.GetProduct)
				r.Get("/categories", catalogHandler.ListCategories)
			})
		})
	})

	return r
}
