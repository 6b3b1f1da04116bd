package core

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// CategorySetVersion identifies the static category enumeration and the
// category to department table below. Bump it whenever either changes.
const CategorySetVersion = 1

// Category is a fixed business-expense bucket.
type Category string

const (
	Food           Category = "Food"
	Health         Category = "Health"
	MonthlyBills   Category = "Monthly Bills"
	EMI            Category = "EMI"
	Shopping       Category = "Shopping"
	Entertainment  Category = "Entertainment"
	Education      Category = "Education"
	Insurance      Category = "Insurance"
	Travel         Category = "Travel"
	OfficeSupplies Category = "Office Supplies"
	Utilities      Category = "Utilities"
	Maintenance    Category = "Maintenance"
	Marketing      Category = "Marketing"
	Software       Category = "Software"
	Hardware       Category = "Hardware"
)

// Enumeration order matters: hint resolution and reports follow it.
var categories = []Category{
	Food,
	Health,
	MonthlyBills,
	EMI,
	Shopping,
	Entertainment,
	Education,
	Insurance,
	Travel,
	OfficeSupplies,
	Utilities,
	Maintenance,
	Marketing,
	Software,
	Hardware,
}

// maxSuggestionDistance bounds how far a hint may be from a category name
// before no suggestion is offered.
const maxSuggestionDistance = 3

// Categories returns the enumeration in order. The slice is a copy.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

func (c Category) Valid() bool {
	for _, k := range categories {
		if k == c {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches a full category name, ignoring case and surrounding space.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ResolveCategory maps a free-text hint to the first category, in enumeration
// order, whose name starts with the hint case-insensitively.
func ResolveCategory(hint string) (Category, error) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h != "" {
		for _, c := range categories {
			if strings.HasPrefix(strings.ToLower(string(c)), h) {
				return c, nil
			}
		}
	}
	if s, ok := SuggestCategory(hint); ok {
		return "", fmt.Errorf("%w: %q (did you mean %q?)", ErrCategoryNotFound, hint, s)
	}
	return "", fmt.Errorf("%w: %q", ErrCategoryNotFound, hint)
}

// SuggestCategory returns the category closest to hint by edit distance, if
// any is within maxSuggestionDistance. It never changes resolution results.
func SuggestCategory(hint string) (Category, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return "", false
	}
	best := Category("")
	bestDist := maxSuggestionDistance + 1
	for _, c := range categories {
		d := levenshtein.ComputeDistance(h, strings.ToLower(string(c)))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
