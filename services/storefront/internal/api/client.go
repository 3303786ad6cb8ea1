// Package api is the storefront's authenticated client for the order API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/utafrali/agrostore/pkg/httpclient"
)

// maxResponseBody bounds decoded response bodies.
const maxResponseBody = 4 << 20

// TokenSource supplies the bearer token. An error or an empty token means
// there is no credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HTTPDoer executes requests; *httpclient.CircuitBreakerClient and
// *httpclient.Client both satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the order API.
type Client struct {
	baseURL string
	tokens  TokenSource
	doer    HTTPDoer
	logger  *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:4000/api".
func NewClient(baseURL string, tokens TokenSource, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		doer:    doer,
		logger:  logger,
	}
}

type requestOptions struct {
	requireAuth bool
}

// RequestOption tunes a single request.
type RequestOption func(*requestOptions)

// RequireAuth fails the request with ErrNoSession when no token is available.
func RequireAuth() RequestOption {
	return func(o *requestOptions) { o.requireAuth = true }
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) token(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.DebugContext(ctx, "no token available", slog.String("error", err.Error()))
		return ""
	}
	return tok
}

// Do sends a JSON request and decodes a 2xx JSON response into out. body and
// out may be nil. A 204 or empty body leaves out untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	token := c.token(ctx)
	if token == "" && o.requireAuth {
		return ErrNoSession
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return &StatusError{Method: method, Path: path, StatusCode: se.StatusCode, Body: se.Body}
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrNetwork, err)
	}

	c.logger.DebugContext(ctx, "api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if !httpclient.IsSuccess(resp.StatusCode) {
		se := httpclient.ReadStatusError(resp)
		return &StatusError{Method: method, Path: path, StatusCode: se.StatusCode, Body: se.Body}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", method, path, ErrNetwork, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrMalformedResponse, err)
	}
	return nil
}
