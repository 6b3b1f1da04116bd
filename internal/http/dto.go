package http

import (
	"time"

	"expensetracker/internal/budget"
	"expensetracker/internal/command"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

type moneyJSON struct {
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

func toMoney(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Display: m.String()}
}

type entryJSON struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Department string    `json:"department"`
	Amount     moneyJSON `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

func toEntry(e core.LedgerEntry) entryJSON {
	return entryJSON{
		ID:         e.ID,
		Category:   e.Category.String(),
		Department: core.DepartmentFor(e.Category).String(),
		Amount:     toMoney(e.Amount),
		Timestamp:  e.Timestamp,
	}
}

type alertJSON struct {
	Kind       string    `json:"kind"`
	Department string    `json:"department,omitempty"`
	Overage    moneyJSON `json:"overage"`
	Message    string    `json:"message"`
}

func toAlerts(alerts []core.Alert) []alertJSON {
	out := make([]alertJSON, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertJSON{
			Kind:       string(a.Kind),
			Department: a.Department.String(),
			Overage:    toMoney(a.Overage),
			Message:    a.Message(),
		})
	}
	return out
}

type ingestionJSON struct {
	Entry   entryJSON   `json:"entry"`
	Alerts  []alertJSON `json:"alerts"`
	Message string      `json:"message"`
}

func toIngestion(ing services.Ingestion) ingestionJSON {
	return ingestionJSON{
		Entry:   toEntry(ing.Entry),
		Alerts:  toAlerts(ing.Alerts),
		Message: ing.Message,
	}
}

type outcomeJSON struct {
	Intent    string         `json:"intent"`
	View      command.View   `json:"view,omitempty"`
	Message   string         `json:"message,omitempty"`
	Ingestion *ingestionJSON `json:"ingestion,omitempty"`
}

func toOutcome(out services.Outcome) outcomeJSON {
	o := outcomeJSON{
		Intent:  intentName(out.Intent),
		View:    out.View,
		Message: out.Message,
	}
	if out.Ingestion != nil {
		ing := toIngestion(*out.Ingestion)
		o.Ingestion = &ing
	}
	return o
}

func intentName(in command.Intent) string {
	switch in.(type) {
	case command.AddExpense:
		return "add_expense"
	case command.ShowView:
		return "show_view"
	case command.Unrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

type categoryAmountJSON struct {
	Category string    `json:"category"`
	Amount   moneyJSON `json:"amount"`
}

type shareJSON struct {
	Category string    `json:"category"`
	Amount   moneyJSON `json:"amount"`
	Percent  float64   `json:"percent"`
}

type summaryJSON struct {
	Categories []categoryAmountJSON `json:"categories"`
	GrandTotal moneyJSON            `json:"grand_total"`
	Shares     []shareJSON          `json:"shares"`
}

func toSummary(s core.Summary) summaryJSON {
	out := summaryJSON{
		Categories: make([]categoryAmountJSON, 0, len(s.ByCategory)),
		GrandTotal: toMoney(s.GrandTotal),
		Shares:     []shareJSON{},
	}
	for _, ca := range s.ByCategory {
		out.Categories = append(out.Categories, categoryAmountJSON{
			Category: ca.Category.String(),
			Amount:   toMoney(ca.Amount),
		})
	}
	for _, sh := range s.Share() {
		out.Shares = append(out.Shares, shareJSON{
			Category: sh.Category.String(),
			Amount:   toMoney(sh.Amount),
			Percent:  sh.Percent,
		})
	}
	return out
}

type departmentJSON struct {
	Department string    `json:"department"`
	Limit      moneyJSON `json:"limit"`
	Spent      moneyJSON `json:"spent"`
	Remaining  moneyJSON `json:"remaining"`
}

func toDepartments(ds []budget.DepartmentBudget) []departmentJSON {
	out := make([]departmentJSON, 0, len(ds))
	for _, d := range ds {
		out = append(out, departmentJSON{
			Department: d.Department.String(),
			Limit:      toMoney(d.Limit),
			Spent:      toMoney(d.Spent),
			Remaining:  toMoney(d.Remaining()),
		})
	}
	return out
}

type savingsGoalJSON struct {
	Quarter  string    `json:"quarter"`
	Target   moneyJSON `json:"target"`
	Saved    moneyJSON `json:"saved"`
	Progress float64   `json:"progress_percent"`
}

type dashboardJSON struct {
	MonthlyBudget     moneyJSON         `json:"monthly_budget"`
	TotalSpent        moneyJSON         `json:"total_spent"`
	BudgetUsedPercent float64           `json:"budget_used_percent"`
	Departments       []departmentJSON  `json:"departments"`
	SavingsGoals      []savingsGoalJSON `json:"savings_goals"`
	Alerts            []alertJSON       `json:"alerts"`
}

func toDashboard(d services.Dashboard) dashboardJSON {
	out := dashboardJSON{
		MonthlyBudget:     toMoney(d.MonthlyBudget),
		TotalSpent:        toMoney(d.TotalSpent),
		BudgetUsedPercent: d.BudgetUsedPercent,
		Departments:       toDepartments(d.Departments),
		SavingsGoals:      make([]savingsGoalJSON, 0, len(d.SavingsGoals)),
		Alerts:            toAlerts(d.Alerts),
	}
	for _, g := range d.SavingsGoals {
		out.SavingsGoals = append(out.SavingsGoals, savingsGoalJSON{
			Quarter:  g.Quarter.String(),
			Target:   toMoney(g.Target),
			Saved:    toMoney(g.Saved),
			Progress: g.Progress(),
		})
	}
	return out
}
