// Package units converts between smallest-unit integer amounts (wei) and the
// decimal display units shown to bettors.
//
// The float64 results are for display only. They are accurate well beyond the
// six decimals the dashboard renders but must not be used for ledger-accurate
// accounting; use the *big.Int values for that.
package units

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// EtherDecimals is the exponent between wei and ETH.
const EtherDecimals = 18

// ToDecimal divides smallestUnit by 10^exponent. Malformed, empty or negative
// input yields 0 so that absent data reads as zero exposure.
func ToDecimal(smallestUnit string, exponent int) float64 {
	f, err := ParseDecimal(smallestUnit, exponent)
	if err != nil {
		return 0
	}
	return f
}

// ParseDecimal is the strict form of ToDecimal. smallestUnit must be an
// unsigned base-10 integer; signs, fractions and exponents are reported as an
// error wrapping domain.ErrMalformedResponse instead of returning 0.
func ParseDecimal(smallestUnit string, exponent int) (float64, error) {
	s := strings.TrimSpace(smallestUnit)
	if s == "" {
		return 0, fmt.Errorf("units: empty amount: %w", domain.ErrMalformedResponse)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("units: negative amount %q: %w", s, domain.ErrMalformedResponse)
	}
	if !isDigits(s) {
		return 0, fmt.Errorf("units: %q is not an unsigned integer: %w", s, domain.ErrMalformedResponse)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("units: parse %q: %w", s, domain.ErrMalformedResponse)
	}
	f, _ := d.Shift(-int32(exponent)).Float64()
	return f, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// WeiToDecimal converts a wei amount to ETH for display. nil reads as 0.
func WeiToDecimal(v *big.Int) float64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, -EtherDecimals).Float64()
	return f
}

// Format renders value with exactly decimals fractional digits. Rounding is
// half away from zero, applied to the shortest decimal representation of the
// float, so Format(2.675, 2) is "2.68" rather than the binary-float "2.67".
// NaN and infinities render as zero.
func Format(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	return decimal.NewFromFloat(value).StringFixed(int32(decimals))
}

// ParseUnits converts a user-entered decimal amount (e.g. "0.05") into the
// smallest unit. It rejects empty, malformed and non-positive amounts, and
// amounts with more fractional digits than exponent allows.
func ParseUnits(amount string, exponent int) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("units: empty amount: %w", domain.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("units: parse %q: %w", s, domain.ErrInvalidAmount)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("units: amount %q must be greater than 0: %w", s, domain.ErrInvalidAmount)
	}
	shifted := d.Shift(int32(exponent))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("units: amount %q has more than %d decimals: %w", s, exponent, domain.ErrInvalidAmount)
	}
	return shifted.BigInt(), nil
}

// FormatUnits renders v exactly in display units without trailing zeros,
// e.g. 500000000000000000 wei -> "0.5".
func FormatUnits(v *big.Int, exponent int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(exponent)).String()
}
