// Package cache puts a Redis read-through cache in front of the catalog.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/agrostore/services/orderapi/internal/domain"
	"github.com/utafrali/agrostore/services/orderapi/internal/repository"
)

const (
	keyPrefix   = "orderapi:catalog:"
	productsKey = keyPrefix + "products"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "orderapi_catalog_cache_lookups_total",
	Help: "Catalog cache lookups by result (hit, miss, error).",
}, []string{"result"})

// Catalog wraps a CatalogRepository with a Redis cache. Redis failures are
// logged and the call falls through to the repository.
type Catalog struct {
	next   repository.CatalogRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCatalog creates a cached catalog. Entries expire after ttl.
func NewCatalog(next repository.CatalogRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Catalog {
	return &Catalog{next: next, client: client, ttl: ttl, logger: logger}
}

// ListProducts returns the cached product list or loads and caches it.
func (c *Catalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if c.get(ctx, productsKey, &products) {
		return products, nil
	}

	products, err := c.next.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, productsKey, products)
	return products, nil
}

// GetProduct returns the cached product or loads and caches it. Misses in
// the repository are not cached.
func (c *Catalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	key := keyPrefix + "product:" + id

	var p domain.Product
	if c.get(ctx, key, &p) {
		return &p, nil
	}

	found, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, found)
	return found, nil
}

// Invalidate drops every cached catalog entry.
func (c *Catalog) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan catalog keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete catalog keys: %w", err)
	}
	return nil
}

func (c *Catalog) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			lookups.WithLabelValues("miss").Inc()
			return false
		}
		lookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "catalog cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		lookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "catalog cache entry corrupt",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	lookups.WithLabelValues("hit").Inc()
	return true
}

func (c *Catalog) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
