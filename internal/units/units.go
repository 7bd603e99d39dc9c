package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the scaling of the native currency: display = base units / 10^18.
const Decimals = 18

// NotAvailable is rendered whenever an amount is missing or cannot be converted.
const NotAvailable = "N/A"

var ErrInvalidAmount = errors.New("invalid decimal amount")

// FormatEther renders a base-unit amount with 18 implied decimals.
func FormatEther(amount *uint256.Int) string {
	return FormatBaseUnits(amount, Decimals)
}

// FormatBaseUnits renders amount / 10^decimals as a plain decimal string using
// only digit manipulation. Trailing fractional zeros are trimmed, so 10^18
// with 18 decimals renders as "1".
func FormatBaseUnits(amount *uint256.Int, decimals int) string {
	if amount == nil || decimals < 0 {
		return NotAvailable
	}
	digits := amount.Dec()
	if decimals == 0 {
		return digits
	}
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	split := len(digits) - decimals
	whole := digits[:split]
	frac := strings.TrimRight(digits[split:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ParseEther is the inverse of FormatEther.
func ParseEther(value string) (*uint256.Int, error) {
	return ParseBaseUnits(value, Decimals)
}

// ParseBaseUnits converts a decimal string into base units. More fractional
// digits than decimals is rejected rather than rounded.
func ParseBaseUnits(value string, decimals int) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == NotAvailable || decimals < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, value, decimals)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", decimals-len(frac)), "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	out, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return out, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
