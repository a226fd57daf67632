// Package units converts between human decimal ether strings and integer
// wei without loss of precision.
package units

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// weiDecimals is the number of decimal places of the network's native unit.
const weiDecimals = 18

// ParseAmount converts a human decimal string ("0.5", "0") into wei. It
// rejects anything that does not parse as a non-negative decimal and any
// amount with more than 18 fractional digits, since such a value cannot be
// represented in wei without rounding. Exponent notation ("1e9") is rejected
// even though the decimal library would parse it: the input contract is
// plain decimal digits.
func ParseAmount(amount string) (*big.Int, error) {
	if strings.ContainsAny(amount, "eE") {
		return nil, errors.Errorf("amount %q must not use exponent notation", amount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Errorf("amount %q is not a valid decimal number", amount)
	}
	if d.IsNegative() {
		return nil, errors.Errorf("amount %q must not be negative", amount)
	}

	wei := d.Shift(weiDecimals)
	if !wei.IsInteger() {
		return nil, errors.Errorf("amount %q has more than %d decimal places", amount, weiDecimals)
	}

	return wei.BigInt(), nil
}

// FormatWei renders a wei balance as a decimal string in the native unit,
// trailing zeros trimmed ("1.5", "0.000000000000000001", "0").
func FormatWei(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}
