package domain

import (
	"encoding/json"
	"strings"

	"github.com/utafrali/agrostore/pkg/money"
)

// Product is a catalog entry.
type Product struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	PriceCents  money.Cents `json:"price_cents"`
	Unit        string      `json:"unit"`
	ImageURL    string      `json:"imageUrl"`
	Description string      `json:"description"`
}

// MarshalJSON adds "price" in whole currency units next to price_cents.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		Price json.Number `json:"price"`
	}{alias(p), json.Number(p.PriceCents.Decimal().String())})
}

// Category is a product grouping. ID is the lowercased name.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoriesOf returns the distinct categories of products in first-seen order.
func CategoriesOf(products []Product) []Category {
	seen := make(map[string]bool, len(products))
	out := make([]Category, 0)
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, Category{ID: strings.ToLower(p.Category), Name: p.Category})
	}
	return out
}

// InCategory reports whether p belongs to category, matched against the
// category name or its id, ignoring case.
func (p Product) InCategory(category string) bool {
	return strings.EqualFold(p.Category, strings.TrimSpace(category))
}
