package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/utafrali/agrostore/pkg/database"
	"github.com/utafrali/agrostore/pkg/httpclient"
	"github.com/utafrali/agrostore/services/storefront/internal/api"
	"github.com/utafrali/agrostore/services/storefront/internal/cart"
	"github.com/utafrali/agrostore/services/storefront/internal/checkout"
	"github.com/utafrali/agrostore/services/storefront/internal/config"
	"github.com/utafrali/agrostore/services/storefront/internal/identity"
	"github.com/utafrali/agrostore/services/storefront/internal/storage"
)

// App wires the cart, its storage, the API client and the checkout flow.
type App struct {
	Cart     *cart.Store
	API      *api.Client
	Checkout *checkout.Flow

	logger  *slog.Logger
	storage storage.Backend
}

// New builds the dependency graph and hydrates the cart.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	backend, err := storage.New(ctx, storage.Config{
		Backend:   cfg.StorageBackend,
		Dir:       cfg.StorageDir,
		KeyPrefix: cfg.StoragePrefix,
		TTL:       cfg.StorageTTL,
		Redis: database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open cart storage: %w", err)
	}
	logger.Debug("cart storage ready", slog.String("backend", cfg.StorageBackend))

	store := cart.NewStore(backend, logger,
		cart.WithKey(cfg.CartKey),
		cart.WithDebounce(cfg.CartDebounce),
	)
	if err := store.Hydrate(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("hydrate cart: %w", err), backend.Close())
	}

	tokens, err := tokenSource(cfg)
	if err != nil {
		return nil, multierr.Append(err, backend.Close())
	}

	// Order creation is not idempotent, so the transport never retries.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.MaxRetries = 0
	httpCfg.Timeout = cfg.RequestTimeout
	httpCfg.UserAgent = "agrostore-storefront"

	cbCfg := httpclient.DefaultCircuitBreakerConfig("storefront-api")
	cbCfg.Timeout = cfg.BreakerTimeout
	cbCfg.FailureRatio = cfg.BreakerFailureRatio
	cbCfg.MinRequests = cfg.BreakerMinRequests

	doer := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger)
	client := api.NewClient(cfg.APIURL, tokens, doer, logger)

	return &App{
		Cart:     store,
		API:      client,
		Checkout: checkout.NewFlow(store, client, logger),
		logger:   logger,
		storage:  backend,
	}, nil
}

// tokenSource picks a static token, then a locally minted JWT, then none.
func tokenSource(cfg *config.Config) (api.TokenSource, error) {
	switch {
	case cfg.APIToken != "":
		return identity.Static(cfg.APIToken), nil
	case cfg.JWTSecret != "":
		iss, err := identity.NewHMACIssuer(identity.HMACConfig{
			Secret: cfg.JWTSecret,
			Issuer: cfg.JWTIssuer,
			UserID: cfg.UserID,
			TTL:    cfg.TokenTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("build token issuer: %w", err)
		}
		return iss, nil
	default:
		return identity.None{}, nil
	}
}

// Close writes any pending cart change and releases the storage backend.
func (a *App) Close(ctx context.Context) error {
	err := multierr.Combine(
		a.Cart.Close(ctx),
		a.storage.Close(),
	)
	if err != nil {
		a.logger.Warn("storefront close error", slog.String("error", err.Error()))
	}
	return err
}
