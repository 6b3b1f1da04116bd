package services

import (
	"expensetracker/internal/budget"
	"expensetracker/internal/core"
)

// Dashboard is the budget overview snapshot.
type Dashboard struct {
	MonthlyBudget     core.Money
	TotalSpent        core.Money
	BudgetUsedPercent float64
	Departments       []budget.DepartmentBudget
	SavingsGoals      []core.SavingsGoal
	Alerts            []core.Alert
}

// Dashboard assembles the overview under one lock so its numbers agree.
func (s *ExpenseService) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := Dashboard{
		MonthlyBudget: s.agg.MonthlyBudget(),
		TotalSpent:    s.ledger.GrandTotal(),
		Departments:   s.agg.Departments(),
		SavingsGoals:  s.agg.SavingsGoals(),
		Alerts:        append([]core.Alert(nil), s.alerts...),
	}
	if d.MonthlyBudget.Cents > 0 {
		d.BudgetUsedPercent = float64(d.TotalSpent.Cents) / float64(d.MonthlyBudget.Cents) * 100
	}
	return d
}
