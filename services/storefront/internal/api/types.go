package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/utafrali/agrostore/pkg/money"
)

// Product is a catalog entry. Price arrives in whatever shape the server
// uses; UnitPriceCents normalizes it.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	Unit        string       `json:"unit,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Price       any          `json:"price,omitempty"`
	PriceCents  *money.Cents `json:"price_cents,omitempty"`
}

// UnitPriceCents prefers price_cents and falls back to normalizing price.
func (p Product) UnitPriceCents() money.Cents {
	if p.PriceCents != nil {
		return *p.PriceCents
	}
	return money.ToCents(p.Price)
}

// Category groups products.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderItem is one line of an order on the wire.
type OrderItem struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	PriceCents money.Cents `json:"price_cents"`
	Quantity   int         `json:"quantity"`
}

// Customer carries the buyer's contact fields.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Items    []OrderItem `json:"items"`
	Customer *Customer   `json:"customer,omitempty"`
}

// CreateOrderResponse is the subset of the created order the client needs.
// TotalCents is nil when the server omitted it.
type CreateOrderResponse struct {
	ID         OrderID      `json:"id"`
	Status     string       `json:"status,omitempty"`
	TotalCents *money.Cents `json:"total_cents,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Order is a placed order as listed by GET /orders.
type Order struct {
	ID         OrderID     `json:"id"`
	Status     string      `json:"status"`
	TotalCents money.Cents `json:"total_cents"`
	CreatedAt  time.Time   `json:"createdAt"`
	UserID     string      `json:"userId,omitempty"`
	Items      []OrderItem `json:"items"`
	Customer   *Customer   `json:"customer,omitempty"`
}

// OrderID is an order identifier that may be sent as a JSON string or number.
type OrderID string

// UnmarshalJSON accepts "abc", 42 and null.
func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("order id must be a string or number: %w", err)
		}
		*id = OrderID(n.String())
		return nil
	}
}

func (id OrderID) String() string { return string(id) }
