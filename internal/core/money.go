// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and rupee representations.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CurrencySymbol prefixes every formatted amount. The engine is single-currency.
const CurrencySymbol = "₹"

// MaxEntryCents caps a single amount at ₹10,000,000,000.00, far enough below
// the int64 range that ledger and department sums cannot wrap.
const MaxEntryCents int64 = 1_000_000_000_000

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// Only a dot is accepted as the decimal separator and only ASCII digits are
// accepted, so "1,500" is an invalid amount. Half-up rounding applies on the
// third decimal place. The result is positive and at most MaxEntryCents.
//
// Examples:
//   ParseDecimalToCents("12.34") -> 1234, nil
//   ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//   ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
//   ParseDecimalToCents("1,500") -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseLimitToCents parses a budget limit. It follows ParseDecimalToCents
// except that zero is allowed: a zero limit flags any spend as an overrun.
func ParseLimitToCents(s string) (int64, error) {
	return parseCents(s)
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Split into integer and fractional part
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	// Signs, commas and non-ASCII digits all fail here.
	if !asciiDigits(intPart) || !asciiDigits(fracPart) {
		return 0, ErrInvalidAmount
	}
	// Convert integer part - check for overflow
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > MaxEntryCents/100 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64 = 0
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 {
				if fracPart[2] >= '5' {
					fracCents++
				}
			}
		}
	}
	cents := iv*100 + fracCents
	if cents > MaxEntryCents {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

func asciiDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MoneyFromFloat converts a floating point amount to cents, rounding half away from zero.
// Values that do not fit in int64 cents are rejected with ErrInvalidAmount.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, ErrInvalidAmount
	}
	c := math.Round(f * 100)
	if c > math.MaxInt64/2 || c < math.MinInt64/2 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: int64(c)}, nil
}

// Units returns the value in whole currency units as a float64 for display purposes.
// Note: Use cents for calculations to avoid floating-point precision issues.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m+o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m-o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m.Cents > 0 }

// String formats the amount with two decimals, e.g. "₹118.00".
func (m Money) String() string {
	return CurrencySymbol + m.Plain()
}

// Plain formats the amount with two decimals and no currency symbol.
func (m Money) Plain() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Grouped formats the amount with thousands separators, e.g. "₹100,000.00".
func (m Money) Grouped() string {
	plain := m.Plain()
	sign := ""
	if strings.HasPrefix(plain, "-") {
		sign = "-"
		plain = plain[1:]
	}
	dot := strings.IndexByte(plain, '.')
	intPart, frac := plain[:dot], plain[dot:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return CurrencySymbol + sign + b.String() + frac
}
