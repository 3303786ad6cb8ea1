package api

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ProductSort orders a product listing.
type ProductSort string

const (
	SortByName  ProductSort = "name"
	SortByPrice ProductSort = "price"
)

// ParseProductSort accepts "name" or "price"; empty means name.
func ParseProductSort(s string) (ProductSort, error) {
	switch ProductSort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByName:
		return SortByName, nil
	case SortByPrice:
		return SortByPrice, nil
	}
	return "", fmt.Errorf("unknown sort %q, want name or price", s)
}

// FilterProducts returns the products whose name or description contains
// query, ignoring case, ordered by by. Names compare with Spanish collation
// ignoring case and accents; prices compare by normalized cents. Ties keep
// the server's order. products is not modified.
func FilterProducts(products []Product, query string, by ProductSort) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}

	if by == SortByPrice {
		slices.SortStableFunc(out, func(a, b Product) int {
			return compareCents(int64(a.UnitPriceCents()), int64(b.UnitPriceCents()))
		})
		return out
	}

	c := collate.New(language.Spanish, collate.Loose)
	slices.SortStableFunc(out, func(a, b Product) int {
		return c.CompareString(a.Name, b.Name)
	})
	return out
}

func compareCents(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
