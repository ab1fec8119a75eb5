package handlers

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// toCents converts a decimal currency amount to integer minor units. The
// second return is false when the amount has sub-cent precision.
func toCents(amount decimal.Decimal) (int64, bool) {
	cents := amount.Mul(hundred)
	if !cents.IsInteger() {
		return 0, false
	}
	return cents.IntPart(), true
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}
