package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/utafrali/agrostore/pkg/database"
	"github.com/utafrali/agrostore/pkg/health"
	pkgkafka "github.com/utafrali/agrostore/pkg/kafka"
	"github.com/utafrali/agrostore/pkg/middleware"
	"github.com/utafrali/agrostore/pkg/tracing"
	"github.com/utafrali/agrostore/services/orderapi/internal/cache"
	"github.com/utafrali/agrostore/services/orderapi/internal/config"
	"github.com/utafrali/agrostore/services/orderapi/internal/event"
	handler "github.com/utafrali/agrostore/services/orderapi/internal/handler/http"
	"github.com/utafrali/agrostore/services/orderapi/internal/repository"
	"github.com/utafrali/agrostore/services/orderapi/internal/repository/postgres"
	"github.com/utafrali/agrostore/services/orderapi/internal/service"
	"github.com/utafrali/agrostore/services/orderapi/migrations"
)

const serviceName = "orderapi"

// App wires together all dependencies and runs the order API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	rateLimiter    *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime(),
		MaxConnIdleTime: cfg.DBMaxConnIdleTime(),
	}, logger)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("connect to postgres: %w", err), a.shutdownTracer())
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, multierr.Append(fmt.Errorf("run migrations: %w", err), a.Shutdown())
	}
	logger.Info("database migrations completed")

	tracer := &database.QueryTracer{SlowThreshold: cfg.SlowQueryThreshold(), Logger: logger}
	orderRepo := postgres.NewOrderRepository(pool, tracer)
	var catalogRepo repository.CatalogRepository = postgres.NewCatalogRepository(pool, tracer)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// The catalog cache is optional; without Redis reads go straight to Postgres.
	if cfg.CatalogCacheTTL > 0 {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("redis unavailable, catalog cache disabled", slog.String("error", err.Error()))
		} else {
			a.redis = client
			cached := cache.NewCatalog(catalogRepo, client, cfg.CatalogCacheTTL, logger)
			// Migrations may have changed the catalog.
			if err := cached.Invalidate(ctx); err != nil {
				logger.Warn("failed to invalidate catalog cache", slog.String("error", err.Error()))
			}
			catalogRepo = cached
			healthHandler.Register("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
			logger.Info("catalog cache enabled",
				slog.String("addr", cfg.RedisAddr),
				slog.Duration("ttl", cfg.CatalogCacheTTL),
			)
		}
	}

	// Order events are best effort; a missing broker does not block orders.
	var events service.EventPublisher
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		a.producer = producer
		events = event.NewProducer(producer, logger)
	}

	orderService := service.NewOrderService(orderRepo, events, logger)
	catalogService := service.NewCatalogService(catalogRepo)

	routerCfg := handler.RouterConfig{
		JWT:           middleware.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		CORS:          corsConfig(cfg),
		CatalogMaxAge: cfg.CatalogMaxAge,
		PprofCIDRs:    cfg.PprofAllowedCIDRs,
	}
	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
		routerCfg.RateLimiter = a.rateLimiter
	}

	router := handler.NewRouter(orderService, catalogService, healthHandler, routerCfg, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return multierr.Append(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Rate limiter sweeper
// 3. Tracer (flush pending spans from drained requests)
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs error

	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = multierr.Append(errs, err)
		}
	}

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	errs = multierr.Append(errs, a.shutdownTracer())

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = multierr.Append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = multierr.Append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errs
}

func (a *App) shutdownTracer() error {
	if a.tracerShutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.tracerShutdown(ctx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment
	return cors
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
