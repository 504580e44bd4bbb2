package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every amount (NUMERIC(12,2)).
const Scale = 2

var (
	ErrInvalidAmount = errors.New("invalid money amount")
	maxAmount        = decimal.New(1, 10) // NUMERIC(12,2) holds < 10^10
)

// Parse reads a user-entered amount like "150.50" and rejects anything that
// is not a positive value representable in the smallest currency unit.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, Validate(d)
}

// Validate checks that d is positive, fits the column and has no more than
// Scale fractional digits.
func Validate(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	if !d.Round(Scale).Equal(d) {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, Scale)
	}
	return nil
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Sum adds up amounts; the empty sum is zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
