// Package identity supplies bearer tokens for the storefront's API client.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by None.
var ErrNoToken = errors.New("no identity token")

// refreshMargin is how long before expiry a cached token is replaced.
const refreshMargin = time.Minute

// Static always returns the same token.
type Static string

// Token returns the token, or ErrNoToken when it is blank.
func (s Static) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(s))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// None never has a token.
type None struct{}

// Token always fails with ErrNoToken.
func (None) Token(context.Context) (string, error) { return "", ErrNoToken }

// Claims are the claims minted by HMACIssuer.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// HMACConfig configures an HMACIssuer.
type HMACConfig struct {
	Secret string
	Issuer string
	UserID string
	TTL    time.Duration
}

// HMACIssuer mints HS256 tokens for a fixed user and caches each token until
// shortly before it expires.
type HMACIssuer struct {
	cfg HMACConfig
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewHMACIssuer validates cfg and returns an issuer.
func NewHMACIssuer(cfg HMACConfig) (*HMACIssuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("identity: secret is required")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("identity: user id is required")
	}
	if cfg.TTL <= refreshMargin {
		return nil, fmt.Errorf("identity: ttl must be longer than %s", refreshMargin)
	}
	return &HMACIssuer{cfg: cfg, now: time.Now}, nil
}

// Token returns the cached token or signs a new one.
func (i *HMACIssuer) Token(context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now().UTC()
	if i.token != "" && now.Before(i.expires.Add(-refreshMargin)) {
		return i.token, nil
	}

	expires := now.Add(i.cfg.TTL)
	claims := &Claims{
		UserID: i.cfg.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   i.cfg.UserID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}

	i.token = signed
	i.expires = expires
	return signed, nil
}
