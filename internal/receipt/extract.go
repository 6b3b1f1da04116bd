// Package receipt turns OCR text of a receipt into a single monetary total.
package receipt

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

// ErrNoTotalFound is returned when no line containing "TOTAL" yields a number.
var ErrNoTotalFound = errors.New("no total amount found")

const totalToken = "TOTAL"

// Unsigned decimal: digits with an optional fraction, or a bare fraction.
var amountPattern = regexp.MustCompile(`\d+\.?\d*|\.\d+`)

// ExtractTotal scans rawText for lines mentioning TOTAL (any case), takes the
// first number on each after removing thousands separators, and returns the
// largest. Receipts usually repeat TOTAL on subtotal, tax and grand total
// lines; the grand total is assumed to be the biggest.
func ExtractTotal(rawText string) (core.Money, error) {
	var (
		best  core.Money
		found bool
	)
	for _, line := range strings.Split(rawText, "\n") {
		if !strings.Contains(strings.ToUpper(line), totalToken) {
			continue
		}
		amt, ok := lineAmount(line)
		if !ok {
			continue
		}
		if !found || amt.Cents > best.Cents {
			best, found = amt, true
		}
	}
	if !found {
		return core.Money{}, ErrNoTotalFound
	}
	return best, nil
}

// TotalLines returns the lines ExtractTotal would consider, for diagnostics.
func TotalLines(rawText string) []string {
	var out []string
	for _, line := range strings.Split(rawText, "\n") {
		if strings.Contains(strings.ToUpper(line), totalToken) {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

func lineAmount(line string) (core.Money, bool) {
	match := amountPattern.FindString(strings.ReplaceAll(line, ",", ""))
	if match == "" {
		return core.Money{}, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return core.Money{}, false
	}
	m, err := core.MoneyFromFloat(f)
	if err != nil {
		return core.Money{}, false
	}
	return m, true
}
