// Package money provides exact decimal helpers for gateway amounts and fees.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CeilToPrecision rounds v up to the given number of decimal places.
// It never rounds down: any residual fraction beyond the requested precision
// bumps the result to the next representable value.
//
//	CeilToPrecision(10.001, 2) == 10.01
//	CeilToPrecision(10.00, 2)  == 10.00
func CeilToPrecision(v decimal.Decimal, places int32) decimal.Decimal {
	return v.Shift(places).Ceil().Shift(-places)
}

// ParseAmount parses a gateway-supplied amount string into a decimal value.
func ParseAmount(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two decimal places, the form
// PayPal and Redsys expect before any gateway-specific massaging.
func FormatAmount(v decimal.Decimal) string {
	return v.StringFixed(2)
}
