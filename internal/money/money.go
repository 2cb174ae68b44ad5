package money

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Amount is a monetary value in major currency units.
type Amount = decimal.Decimal

// Zero is the zero amount.
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// halfCent is the tolerance used when matching amounts that went through float storage.
var halfCent = decimal.New(5, -3)

// Round2 rounds half away from zero to two decimal places.
func Round2(a Amount) Amount {
	return a.Round(2)
}

// Percent returns round2(base × pct / 100).
func Percent(base Amount, pct decimal.Decimal) Amount {
	return Round2(base.Mul(pct).Div(hundred))
}

// Min returns the smaller amount.
func Min(a, b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger amount.
func Max(a, b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// WithinHalfCent reports whether a and b differ by at most 0.005.
func WithinHalfCent(a, b Amount) bool {
	return a.Sub(b).Abs().LessThanOrEqual(halfCent)
}

// Parse converts a decimal string into an amount. Negative values are rejected.
func Parse(raw string) (Amount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Zero, errors.New("amount is required")
	}
	v, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Zero, errors.Wrapf(err, "parse amount %q", trimmed)
	}
	if v.IsNegative() {
		return Zero, errors.Newf("amount %s must not be negative", trimmed)
	}
	return v, nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) Amount {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Format renders the amount with exactly two decimals.
func Format(a Amount) string {
	return a.StringFixed(2)
}
