package domain

import (
	"math"

	"github.com/utafrali/agrostore/pkg/money"
)

// MaxQuantity caps a line's quantity so it fits the order API's INT column.
const MaxQuantity = math.MaxInt32

// CartLine is one distinct product in the cart.
type CartLine struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	UnitPriceCents money.Cents `json:"price_cents"`
	Quantity       int         `json:"quantity"`
}

// Subtotal returns price times quantity.
func (l CartLine) Subtotal() money.Cents {
	return l.UnitPriceCents.Times(l.Quantity)
}

// Normalized clamps the price to at least zero and the quantity to
// [1, MaxQuantity].
func (l CartLine) Normalized() CartLine {
	if l.UnitPriceCents < 0 {
		l.UnitPriceCents = 0
	}
	l.Quantity = ClampQuantity(l.Quantity)
	return l
}

// ClampQuantity bounds qty to [1, MaxQuantity].
func ClampQuantity(qty int) int {
	switch {
	case qty < 1:
		return 1
	case qty > MaxQuantity:
		return MaxQuantity
	}
	return qty
}

// AddQuantity sums two positive quantities, saturating at MaxQuantity.
func AddQuantity(a, b int) int {
	if b > MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

// TotalCents sums the subtotals of lines, saturating instead of wrapping.
func TotalCents(lines []CartLine) money.Cents {
	var total money.Cents
	for _, l := range lines {
		total = total.Plus(l.Subtotal())
	}
	return total
}
