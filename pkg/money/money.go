// Package money converts loosely formatted prices into integer minor units
// and formats them back for display.
package money

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor currency units.
type Cents int64

// DefaultCurrency is the display prefix used by Format.
const DefaultCurrency = "Q"

var (
	stripPattern  = regexp.MustCompile(`[^0-9.,\-]`)
	numericPrefix = regexp.MustCompile(`^(-?)(\d*)(?:\.(\d*))?`)
)

// ToCents normalizes a heterogeneous price value into cents. Numeric kinds are
// interpreted as whole currency units, strings go through ParseCents, and any
// value that cannot be interpreted yields 0.
func ToCents(v any) Cents {
	switch p := v.(type) {
	case float64:
		return FromUnits(p)
	case float32:
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return 0
		}
		return fromDecimal(decimal.NewFromFloat32(p))
	case int:
		return Cents(p) * 100
	case int8:
		return Cents(p) * 100
	case int16:
		return Cents(p) * 100
	case int32:
		return Cents(p) * 100
	case int64:
		return Cents(p) * 100
	case uint:
		return Cents(p) * 100
	case uint8:
		return Cents(p) * 100
	case uint16:
		return Cents(p) * 100
	case uint32:
		return Cents(p) * 100
	case uint64:
		return Cents(p) * 100
	case decimal.Decimal:
		return fromDecimal(p)
	case json.Number:
		if d, err := decimal.NewFromString(p.String()); err == nil {
			return fromDecimal(d)
		}
		return ParseCents(p.String())
	case string:
		return ParseCents(p)
	default:
		return 0
	}
}

// FromUnits converts a unit amount (e.g. 19.9) into cents. NaN and infinities
// yield 0.
func FromUnits(units float64) Cents {
	if math.IsNaN(units) || math.IsInf(units, 0) {
		return 0
	}
	return fromDecimal(decimal.NewFromFloat(units))
}

// ParseCents parses a price string such as "Q19.90", "1,990.50" or "19,90".
//
// Everything except digits, '.', ',' and '-' is dropped. When a '.' is present
// commas are thousands separators; otherwise the first comma is the decimal
// separator. The longest numeric prefix is used and unparsable input yields 0.
func ParseCents(s string) Cents {
	clean := stripPattern.ReplaceAllString(s, "")

	var normalized string
	if strings.Contains(clean, ".") {
		normalized = strings.ReplaceAll(clean, ",", "")
	} else {
		normalized = strings.Replace(clean, ",", ".", 1)
	}

	m := numericPrefix.FindStringSubmatch(normalized)
	if m == nil {
		return 0
	}
	sign, whole, frac := m[1], m[2], m[3]
	if whole == "" && frac == "" {
		return 0
	}
	if whole == "" {
		whole = "0"
	}

	literal := sign + whole
	if frac != "" {
		literal += "." + frac
	}

	d, err := decimal.NewFromString(literal)
	if err != nil {
		return 0
	}
	return fromDecimal(d)
}

// Format renders cents with the default currency prefix, e.g. "Q 19.90".
func Format(c Cents) string {
	return FormatWith(DefaultCurrency, c)
}

// FormatWith renders cents with the given currency prefix. An empty prefix
// renders the bare amount.
func FormatWith(currency string, c Cents) string {
	amount := c.Decimal().StringFixed(2)
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

// Decimal returns the amount in whole currency units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(c)).Shift(-2)
}

// Times multiplies a unit price by a quantity, saturating at the int64
// bounds instead of wrapping.
func (c Cents) Times(qty int) Cents {
	if c == 0 || qty == 0 {
		return 0
	}
	p := c * Cents(qty)
	if p/Cents(qty) != c || (qty == -1 && c == math.MinInt64) {
		if (c < 0) != (qty < 0) {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return p
}

// Plus adds two amounts, saturating at the int64 bounds.
func (c Cents) Plus(d Cents) Cents {
	s := c + d
	switch {
	case d > 0 && s < c:
		return math.MaxInt64
	case d < 0 && s > c:
		return math.MinInt64
	}
	return s
}

// fromDecimal shifts a unit amount to cents, rounding half away from zero.
func fromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}
