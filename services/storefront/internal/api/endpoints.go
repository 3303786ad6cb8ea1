package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Health checks the public liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.Do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("GET /health: %w: ok is false", ErrMalformedResponse)
	}
	return nil
}

// Products lists the catalog, optionally filtered by category.
func (c *Client) Products(ctx context.Context, category string) ([]Product, error) {
	path := "/products"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var out []Product
	if err := c.Do(ctx, http.MethodGet, path, nil, &out, RequireAuth()); err != nil {
		return nil, err
	}
	return out, nil
}

// Product fetches one product.
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.Do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out, RequireAuth()); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("GET /products/%s: %w: missing id", id, ErrMalformedResponse)
	}
	return &out, nil
}

// Categories lists product categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.Do(ctx, http.MethodGet, "/categories", nil, &out, RequireAuth()); err != nil {
		return nil, err
	}
	return out, nil
}

// Orders lists the caller's orders, newest first.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.Do(ctx, http.MethodGet, "/orders", nil, &out, RequireAuth()); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder submits an order. The request is sent once.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.Do(ctx, http.MethodPost, "/orders", req, &out, RequireAuth()); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("POST /orders: %w: missing order id", ErrMalformedResponse)
	}
	return &out, nil
}
