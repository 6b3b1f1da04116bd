// Package budget derives department spend, quarterly savings and overrun
// alerts from the ledger.
package budget

import (
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// GrandTotaler is the read side of the ledger the aggregator depends on.
type GrandTotaler interface {
	GrandTotal() core.Money
}

// Limits are the fixed budget defaults the aggregator starts from.
type Limits struct {
	MonthlyBudget  core.Money
	Departments    map[core.Department]core.Money
	SavingsTargets map[core.Quarter]core.Money
}

// DefaultLimits returns the stock company budget.
func DefaultLimits() Limits {
	return Limits{
		MonthlyBudget: units(100000),
		Departments: map[core.Department]core.Money{
			core.DeptHR:         units(20000),
			core.DeptIT:         units(30000),
			core.DeptMarketing:  units(25000),
			core.DeptOperations: units(25000),
		},
		SavingsTargets: map[core.Quarter]core.Money{
			1: units(50000),
			2: units(60000),
			3: units(70000),
			4: units(80000),
		},
	}
}

func units(n int64) core.Money { return core.Money{Cents: n * 100} }

// DepartmentBudget is a department's limit and the spend mapped to it.
type DepartmentBudget struct {
	Department core.Department
	Limit      core.Money
	Spent      core.Money
}

// Remaining is Limit-Spent; negative when over budget.
func (d DepartmentBudget) Remaining() core.Money {
	return d.Limit.Sub(d.Spent)
}

// Aggregator maintains department and savings aggregates. Like the ledger it
// is not safe for concurrent use on its own.
type Aggregator struct {
	ledger        GrandTotaler
	monthlyBudget core.Money
	departments   map[core.Department]*DepartmentBudget
	savings       map[core.Quarter]*core.SavingsGoal
	now           func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the source of the current date used for quarter selection.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(ledger GrandTotaler, limits Limits, opts ...Option) *Aggregator {
	a := &Aggregator{
		ledger:        ledger,
		monthlyBudget: limits.MonthlyBudget,
		departments:   make(map[core.Department]*DepartmentBudget),
		savings:       make(map[core.Quarter]*core.SavingsGoal),
		now:           time.Now,
	}
	for _, d := range core.Departments() {
		a.departments[d] = &DepartmentBudget{Department: d, Limit: limits.Departments[d]}
	}
	for _, q := range core.Quarters() {
		a.savings[q] = &core.SavingsGoal{Quarter: q, Target: limits.SavingsTargets[q]}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnRecord must be called once per successful ledger record. It adds amount to
// the category's department and rewrites the current quarter's saved value as
// monthlyBudget minus the ledger grand total.
//
// The saved value is a full recompute assigned to whatever quarter "now" falls
// in; earlier quarters keep their last written value.
func (a *Aggregator) OnRecord(category core.Category, amount core.Money) {
	dept := a.departments[core.DepartmentFor(category)]
	dept.Spent = dept.Spent.Add(amount)

	q := core.QuarterOf(a.now())
	a.savings[q].Saved = a.monthlyBudget.Sub(a.ledger.GrandTotal())
}

// SetDepartmentLimit changes a department's budget limit. Limits lie in
// [0, core.MaxEntryCents]; zero is a valid limit.
func (a *Aggregator) SetDepartmentLimit(d core.Department, limit core.Money) error {
	dept, ok := a.departments[d]
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrUnknownDepartment, d)
	}
	if limit.Cents < 0 || limit.Cents > core.MaxEntryCents {
		return fmt.Errorf("department limit %s: %w", limit, core.ErrInvalidAmount)
	}
	dept.Limit = limit
	return nil
}

func (a *Aggregator) MonthlyBudget() core.Money {
	return a.monthlyBudget
}

func (a *Aggregator) GrandTotal() core.Money {
	return a.ledger.GrandTotal()
}

// Departments returns a snapshot in department iteration order.
func (a *Aggregator) Departments() []DepartmentBudget {
	out := make([]DepartmentBudget, 0, len(a.departments))
	for _, d := range core.Departments() {
		out = append(out, *a.departments[d])
	}
	return out
}

func (a *Aggregator) Department(d core.Department) (DepartmentBudget, bool) {
	dept, ok := a.departments[d]
	if !ok {
		return DepartmentBudget{}, false
	}
	return *dept, true
}

// SavingsGoals returns a snapshot ordered Q1..Q4.
func (a *Aggregator) SavingsGoals() []core.SavingsGoal {
	out := make([]core.SavingsGoal, 0, len(a.savings))
	for _, q := range core.Quarters() {
		out = append(out, *a.savings[q])
	}
	return out
}
