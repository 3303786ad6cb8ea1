package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/agrostore/pkg/money"
)

func TestCartLine_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   CartLine
		want CartLine
	}{
		{"valid", CartLine{ID: "p1", UnitPriceCents: 1990, Quantity: 2}, CartLine{ID: "p1", UnitPriceCents: 1990, Quantity: 2}},
		{"negative price", CartLine{ID: "p1", UnitPriceCents: -5, Quantity: 1}, CartLine{ID: "p1", UnitPriceCents: 0, Quantity: 1}},
		{"zero quantity", CartLine{ID: "p1", UnitPriceCents: 100, Quantity: 0}, CartLine{ID: "p1", UnitPriceCents: 100, Quantity: 1}},
		{"negative quantity", CartLine{ID: "p1", UnitPriceCents: 100, Quantity: -3}, CartLine{ID: "p1", UnitPriceCents: 100, Quantity: 1}},
		{"oversized quantity", CartLine{ID: "p1", UnitPriceCents: 100, Quantity: math.MaxInt}, CartLine{ID: "p1", UnitPriceCents: 100, Quantity: MaxQuantity}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestTotalCents(t *testing.T) {
	lines := []CartLine{
		{ID: "p1", UnitPriceCents: 1990, Quantity: 1},
		{ID: "p2", UnitPriceCents: 1450, Quantity: 2},
	}
	assert.Equal(t, money.Cents(4890), TotalCents(lines))
	assert.Equal(t, money.Cents(0), TotalCents(nil))
}

func TestTotalCents_Saturates(t *testing.T) {
	lines := []CartLine{
		{ID: "p1", UnitPriceCents: math.MaxInt64 / 2, Quantity: 3},
		{ID: "p2", UnitPriceCents: 100, Quantity: 1},
	}
	assert.Equal(t, money.Cents(math.MaxInt64), TotalCents(lines))
}

func TestAddQuantity(t *testing.T) {
	assert.Equal(t, 5, AddQuantity(2, 3))
	assert.Equal(t, MaxQuantity, AddQuantity(MaxQuantity, 1))
	assert.Equal(t, MaxQuantity, AddQuantity(MaxQuantity-1, MaxQuantity))
}
