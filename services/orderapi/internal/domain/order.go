package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/agrostore/pkg/money"
)

// OrderStatusCreated is the status of every newly placed order.
const OrderStatusCreated = "created"

// Item bounds. MaxQuantity matches the INT quantity column; MaxPriceCents
// is one billion currency units.
const (
	MaxQuantity   = math.MaxInt32
	MaxPriceCents = money.Cents(100_000_000_000)
)

// ErrTotalOverflow reports an order total that does not fit in int64 cents.
var ErrTotalOverflow = errors.New("order total overflows")

// Order is a placed order.
type Order struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	TotalCents money.Cents `json:"total_cents"`
	CreatedAt  time.Time   `json:"createdAt"`
	UserID     string      `json:"userId"`
	Items      []OrderItem `json:"items"`
	Customer   *Customer   `json:"customer,omitempty"`
}

// OrderItem is one product line of an order.
type OrderItem struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	PriceCents money.Cents `json:"price_cents"`
	Quantity   int         `json:"quantity"`
}

// Customer holds the buyer's contact details.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Subtotal returns price times quantity.
func (i OrderItem) Subtotal() money.Cents {
	return i.PriceCents.Times(i.Quantity)
}

// NewOrder builds a created order for userID with a fresh id and its total
// computed from items.
func NewOrder(userID string, items []OrderItem, customer *Customer, now time.Time) *Order {
	o := &Order{
		ID:        uuid.New().String(),
		Status:    OrderStatusCreated,
		CreatedAt: now.UTC(),
		UserID:    userID,
		Items:     items,
		Customer:  customer,
	}
	o.TotalCents = o.ComputeTotal()
	return o
}

// ComputeTotal sums the item subtotals, saturating at the int64 bound.
// Callers validate with SumItems first.
func (o *Order) ComputeTotal() money.Cents {
	var total money.Cents
	for _, it := range o.Items {
		total = total.Plus(it.Subtotal())
	}
	return total
}

// SumItems returns the exact total of non-negative items, or
// ErrTotalOverflow when it exceeds math.MaxInt64.
func SumItems(items []OrderItem) (money.Cents, error) {
	var total money.Cents
	for _, it := range items {
		if it.Quantity > 0 && it.PriceCents > math.MaxInt64/money.Cents(it.Quantity) {
			return 0, ErrTotalOverflow
		}
		sub := it.Subtotal()
		if total > math.MaxInt64-sub {
			return 0, ErrTotalOverflow
		}
		total += sub
	}
	return total, nil
}
