// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal values with two fractional digits, stored as
// text so that no float rounding ever reaches the ledger.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept for every amount.
const AmountScale = 2

// maxAmount mirrors a DECIMAL(10,2) column.
var maxAmount = decimal.RequireFromString("99999999.99")

// ParseAmount converts a user-supplied string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half away from zero to two decimals.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	d = NormalizeAmount(d)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// NormalizeAmount rounds to AmountScale digits.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// ValidateAmount rejects zero, negative and oversized amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if d.GreaterThan(maxAmount) {
		return NewValidationError("amount", "amount too large")
	}
	return nil
}

// SumAmounts adds amounts without intermediate rounding.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...)
}

// Percentage returns round(part/total*100) and 0 when total is not positive.
func Percentage(part, total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	return int(part.Mul(decimal.NewFromInt(100)).Div(total).Round(0).IntPart())
}
