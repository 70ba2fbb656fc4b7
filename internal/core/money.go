// Package core holds the domain model of the bookkeeping ledger: accounts,
// categories, transactions and the validation rules that protect them.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateAmount enforces the ledger's amount rule: non-zero and at most two
// decimal places of significance.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return NewValidationError("amount", "must be non-zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return NewValidationError("amount", "must have at most 2 decimal places")
	}
	return nil
}

// ParseAmount parses a decimal amount string, tolerating a leading currency
// sign and thousands separators as they appear in bank exports.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "must be a number")
	}
	return d, nil
}

// Cents converts a 2-dp amount to integer cents for exact storage arithmetic.
func Cents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// AmountFromCents converts stored cents back to a decimal amount.
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
