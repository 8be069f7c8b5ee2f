package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of fractional digits kept for every amount (paise).
const MinorUnits = 2

var hundred = decimal.NewFromInt(100)

// ValidateAmount rejects non-positive amounts and amounts finer than a minor unit.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if !amount.Equal(amount.Round(MinorUnits)) {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidAmount, MinorUnits)
	}
	return nil
}

// ParseAmount reads a decimal amount from user input. Anything that is not a
// number is ErrInvalidAmount; sign and precision are left to ValidateAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	return v, nil
}

// SplitPayment divides a repayment into the shopkeeper's principal and the
// platform commission, using a percentage rate (2.5 means 2.5%).
//
//	principal  = round(amount / (1 + rate/100))
//	commission = amount - principal
func SplitPayment(amount, ratePct decimal.Decimal) (principal, commission decimal.Decimal) {
	if ratePct.IsZero() {
		return amount, decimal.Zero
	}
	divisor := decimal.NewFromInt(1).Add(ratePct.Div(hundred))
	principal = amount.DivRound(divisor, MinorUnits)
	return principal, amount.Sub(principal)
}

// PercentOf returns pct% of amount, rounded to minor units.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(MinorUnits)
}
