package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gateway-pay/internal/money"
)

// FeeFunc computes the gateway fee for a verified amount.
type FeeFunc func(amount decimal.Decimal) decimal.Decimal

// Fee is a tagged union: either a flat percentage of the amount or a custom
// calculator delegate. The zero value computes no fee.
type Fee struct {
	percent decimal.Decimal
	flat    bool
	fn      FeeFunc
}

// FlatPercentage builds a Fee charging amount*percent, rounded up to two
// decimal places with ceiling semantics.
func FlatPercentage(percent decimal.Decimal) Fee {
	return Fee{percent: percent, flat: true}
}

// CustomCalculator builds a Fee delegating to fn.
func CustomCalculator(fn FeeFunc) Fee {
	return Fee{fn: fn}
}

// IsZero reports whether no fee scheme is configured.
func (f Fee) IsZero() bool {
	return !f.flat && f.fn == nil
}

// Apply resolves the fee for amount.
func (f Fee) Apply(amount decimal.Decimal) decimal.Decimal {
	switch {
	case f.flat:
		return money.CeilToPrecision(amount.Mul(f.percent), 2)
	case f.fn != nil:
		return f.fn(amount)
	default:
		return decimal.Zero
	}
}
