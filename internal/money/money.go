// Package money converts between the decimal amount strings used on the
// wire and the int64 minor units (cents) everything else computes in.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"profitbliss-backend/internal/domain"
)

var centFactor = decimal.NewFromInt(100)

// Parse converts a decimal amount string such as "250" or "99.95" into
// minor units. Amounts with sub-cent precision or more than 15 integer
// digits are rejected, as are zero and negative amounts. All failures are
// INVALID_INPUT domain errors so handlers map them to 400.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("invalid amount %q", s))
	}

	cents := d.Mul(centFactor)
	if !cents.IsInteger() {
		return 0, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("amount %q has sub-cent precision", s))
	}
	if !cents.BigInt().IsInt64() {
		return 0, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("amount %q out of range", s))
	}

	v := cents.IntPart()
	if v <= 0 {
		return 0, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("amount %q must be positive", s))
	}

	return v, nil
}

// Format renders minor units as a two-decimal amount string.
func Format(cents int64) string {
	return decimal.NewFromInt(cents).Div(centFactor).StringFixed(2)
}
