// Package storage provides the durable key-value backends the cart persists to.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/agrostore/pkg/database"
)

// Storage is a key-value store for opaque snapshots. Get returns an error
// matching apperrors.ErrNotFound when key has never been written.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Backend is a Storage that owns resources.
type Backend interface {
	Storage
	Close() error
}

// Backend names accepted by Config.Backend.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Dir is the directory used by the file backend.
	Dir string

	Redis     database.RedisConfig
	KeyPrefix string
	TTL       time.Duration
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case BackendFile:
		return NewFileStorage(cfg.Dir)
	case BackendRedis:
		client, err := database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		s := NewRedisStorage(client, cfg.KeyPrefix, cfg.TTL)
		s.owned = true
		return s, nil
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
