// Package ledger holds the append-only record of accepted expenses.
package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

// Ledger maps each category to its entries in insertion order. It is not safe
// for concurrent use; the owning service serializes access.
type Ledger struct {
	entries map[core.Category][]core.LedgerEntry
	// grand is the running sum of every entry; Record refuses to wrap it.
	grand int64
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		entries: make(map[core.Category][]core.LedgerEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends a timestamped entry. It is the only mutator. Amounts must
// lie in (0, core.MaxEntryCents] and must not overflow the grand total;
// a rejected amount leaves the ledger unchanged.
func (l *Ledger) Record(category core.Category, amount core.Money) (core.LedgerEntry, error) {
	if err := amount.Validate(); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("record %s: %w", amount, err)
	}
	if !category.Valid() {
		return core.LedgerEntry{}, fmt.Errorf("record %q: %w", category, core.ErrUnknownCategory)
	}
	if l.grand > math.MaxInt64-amount.Cents {
		return core.LedgerEntry{}, fmt.Errorf("record %s: grand total would overflow: %w", amount, core.ErrInvalidAmount)
	}
	entry := core.LedgerEntry{
		ID:        uuid.NewString(),
		Category:  category,
		Amount:    amount,
		Timestamp: l.now(),
	}
	l.entries[category] = append(l.entries[category], entry)
	l.grand += amount.Cents
	return entry, nil
}

// Totals sums every category, including empty ones, on each call.
func (l *Ledger) Totals() map[core.Category]core.Money {
	out := make(map[core.Category]core.Money, len(core.Categories()))
	for _, c := range core.Categories() {
		var sum core.Money
		for _, e := range l.entries[c] {
			sum = sum.Add(e.Amount)
		}
		out[c] = sum
	}
	return out
}

// Total returns the sum for a single category.
func (l *Ledger) Total(category core.Category) core.Money {
	var sum core.Money
	for _, e := range l.entries[category] {
		sum = sum.Add(e.Amount)
	}
	return sum
}

func (l *Ledger) GrandTotal() core.Money {
	return core.Money{Cents: l.grand}
}

// Entries returns a copy of the entries recorded under category.
func (l *Ledger) Entries(category core.Category) []core.LedgerEntry {
	return append([]core.LedgerEntry(nil), l.entries[category]...)
}

// Len returns the number of recorded entries across all categories.
func (l *Ledger) Len() int {
	n := 0
	for _, es := range l.entries {
		n += len(es)
	}
	return n
}
