// Package money holds the decimal helpers used for every balance and amount.
// Values are shopspring decimals end to end; nothing passes through float64.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored by NUMERIC(20, 4) columns.
const Scale = 4

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrTooPrecise     = fmt.Errorf("amount has more than %d decimal places", Scale)
)

// Zero is the additive identity.
var Zero = decimal.Zero

// Parse reads a decimal string such as "300" or "1250.50".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := checkScale(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// RequirePositive rejects zero, negative and over-precise amounts.
func RequirePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return checkScale(d)
}

// RequireNonNegative rejects negative and over-precise amounts.
func RequireNonNegative(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	return checkScale(d)
}

// Sum adds all values, returning Zero for none.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func checkScale(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Scale)) {
		return ErrTooPrecise
	}
	return nil
}
