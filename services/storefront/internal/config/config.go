package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/agrostore/pkg/config"
	"github.com/utafrali/agrostore/services/storefront/internal/storage"
)

// EnvPrefix is prepended to every variable below.
const EnvPrefix = "STOREFRONT_"

// Config holds all configuration for the storefront client.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Order API
	APIURL         string        `env:"API_URL" envDefault:"http://localhost:4000/api"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	// Identity: a static token wins over a JWT secret; with neither the
	// client is anonymous.
	APIToken  string        `env:"API_TOKEN"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"agrostore"`
	UserID    string        `env:"USER_ID" envDefault:"demo-user"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"15m"`

	// Circuit breaker around the API client
	BreakerTimeout      time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Cart persistence
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"file"`
	StorageDir     string        `env:"STORAGE_DIR" envDefault:".agrostore"`
	StoragePrefix  string        `env:"STORAGE_PREFIX" envDefault:"storefront:"`
	StorageTTL     time.Duration `env:"STORAGE_TTL" envDefault:"720h"`
	CartKey        string        `env:"CART_KEY" envDefault:"cart:v1"`
	CartDebounce   time.Duration `env:"CART_DEBOUNCE" envDefault:"200ms"`

	// Redis, used by the redis storage backend
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load reads configuration from STOREFRONT_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithPrefix(cfg, EnvPrefix); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%sAPI_URL must be an absolute http(s) URL, got %q", EnvPrefix, c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%sREQUEST_TIMEOUT must be positive", EnvPrefix)
	}
	if c.APIToken == "" && c.JWTSecret != "" && c.TokenTTL <= time.Minute {
		return fmt.Errorf("%sTOKEN_TTL must be longer than 1m", EnvPrefix)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("%sBREAKER_FAILURE_RATIO must be in (0, 1]", EnvPrefix)
	}
	switch c.StorageBackend {
	case storage.BackendFile:
		if c.StorageDir == "" {
			return fmt.Errorf("%sSTORAGE_DIR is required for the file backend", EnvPrefix)
		}
	case storage.BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%sREDIS_ADDR is required for the redis backend", EnvPrefix)
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("%sSTORAGE_BACKEND must be one of file, redis, memory; got %q", EnvPrefix, c.StorageBackend)
	}
	if c.CartKey == "" {
		return fmt.Errorf("%sCART_KEY is required", EnvPrefix)
	}
	if c.CartDebounce <= 0 {
		return fmt.Errorf("%sCART_DEBOUNCE must be positive", EnvPrefix)
	}
	return nil
}
