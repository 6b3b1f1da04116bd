package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// Summary is a read-only snapshot of per-category totals in enumeration
// order plus the grand total. Export and insights collaborators receive this.
type Summary struct {
	ByCategory []CategoryAmount
	GrandTotal Money
}

// SummaryFromTotals orders a totals map by the category enumeration. Missing
// categories are reported as zero.
func SummaryFromTotals(totals map[Category]Money) Summary {
	s := Summary{ByCategory: make([]CategoryAmount, 0, len(categories))}
	for _, c := range categories {
		amt := totals[c]
		s.ByCategory = append(s.ByCategory, CategoryAmount{Category: c, Amount: amt})
		s.GrandTotal = s.GrandTotal.Add(amt)
	}
	return s
}

// Share returns each non-zero category's percentage of the grand total.
func (s Summary) Share() []CategoryShare {
	if s.GrandTotal.Cents <= 0 {
		return nil
	}
	var out []CategoryShare
	for _, ca := range s.ByCategory {
		if ca.Amount.Cents <= 0 {
			continue
		}
		out = append(out, CategoryShare{
			Category: ca.Category,
			Amount:   ca.Amount,
			Percent:  float64(ca.Amount.Cents) / float64(s.GrandTotal.Cents) * 100,
		})
	}
	return out
}

// CategoryShare is one slice of the pie chart view.
type CategoryShare struct {
	Category Category
	Amount   Money
	Percent  float64
}

// Snapshot is a dated summary handed to export backends.
type Snapshot struct {
	GeneratedAt time.Time
	Summary     Summary
}
