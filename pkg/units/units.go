// Package units converts token amounts between base units (the smallest
// indivisible integer representation) and human-readable decimal strings.
package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidBase reports whether s is a canonical non-negative integer string:
// digits only, no sign, no leading zeros except "0" itself
func ValidBase(s string) bool {
	if s == "" {
		return false
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ToHuman renders a base-unit amount with the given decimal precision.
// Trailing fractional zeros are dropped: ToHuman("1500000", 6) == "1.5".
func ToHuman(base string, decimals int32) (string, error) {
	if !ValidBase(base) {
		return "", fmt.Errorf("invalid base amount %q", base)
	}
	if decimals < 0 {
		return "", fmt.Errorf("invalid decimals %d", decimals)
	}
	d, err := decimal.NewFromString(base)
	if err != nil {
		return "", fmt.Errorf("invalid base amount %q: %w", base, err)
	}
	return d.Shift(-decimals).String(), nil
}

// ToBase converts a human amount to base units. Amounts with more fractional
// digits than the token supports are rejected rather than rounded.
func ToBase(human string, decimals int32) (string, error) {
	human = strings.TrimSpace(human)
	if human == "" {
		return "", fmt.Errorf("amount cannot be empty")
	}
	if decimals < 0 {
		return "", fmt.Errorf("invalid decimals %d", decimals)
	}
	d, err := decimal.NewFromString(human)
	if err != nil {
		return "", fmt.Errorf("invalid amount format: %w", err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("amount must not be negative")
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("amount %s has more than %d decimal places", human, decimals)
	}
	return scaled.Truncate(0).String(), nil
}

// MustHuman is ToHuman for display paths where the amount was already validated
func MustHuman(base string, decimals int32) string {
	h, err := ToHuman(base, decimals)
	if err != nil {
		return base
	}
	return h
}

// Compare returns -1, 0 or 1 comparing two base-unit amounts
func Compare(a, b string) (int, error) {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", a, err)
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", b, err)
	}
	return da.Cmp(db), nil
}

// IsZero reports whether a base amount is empty or zero
func IsZero(s string) bool {
	if s == "" {
		return true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return true
	}
	return d.IsZero()
}
