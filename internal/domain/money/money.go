// Package money converts between integer minor units and the decimal
// strings the gateway expects.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrBadAmount = errors.New("invalid amount format")

// FormatCents renders 1050 as "10.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseCents is the inverse of FormatCents. Amounts with sub-cent precision
// are rejected instead of rounded.
func ParseCents(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, value)
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal currency amount to cents, rejecting
// sub-cent precision.
func FromDecimal(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has sub-cent precision", ErrBadAmount, d.String())
	}
	return shifted.IntPart(), nil
}
