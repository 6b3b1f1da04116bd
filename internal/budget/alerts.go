package budget

import "expensetracker/internal/core"

// Evaluate recomputes the full alert list from current state: one alert per
// department whose spend exceeds its limit, in department order, followed by
// a company-wide alert when the grand total exceeds the monthly budget.
// Nothing is remembered between calls.
func Evaluate(a *Aggregator) []core.Alert {
	var alerts []core.Alert
	for _, d := range a.Departments() {
		if d.Spent.Cents > d.Limit.Cents {
			alerts = append(alerts, core.Alert{
				Kind:       core.AlertDepartmentOverrun,
				Department: d.Department,
				Overage:    d.Spent.Sub(d.Limit),
			})
		}
	}
	total := a.GrandTotal()
	if total.Cents > a.MonthlyBudget().Cents {
		alerts = append(alerts, core.Alert{
			Kind:    core.AlertCompanyOverrun,
			Overage: total.Sub(a.MonthlyBudget()),
		})
	}
	return alerts
}
