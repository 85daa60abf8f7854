// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is a transacted stock quantity. Fractional quantities (kg, m) are allowed,
// so it shares the decimal representation with Money.
type Quantity = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use MustMoney or ParseDecimal for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// ParseDecimal parses a stored or user-supplied number.
//
// An empty string means "absent" and yields zero. A single comma is accepted as the
// decimal separator ("12,5") since the upstream forms accept both notations; anything
// else that is not a plain decimal number is rejected.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// DivOrZero returns a/b, or zero when b is zero.
func DivOrZero(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
