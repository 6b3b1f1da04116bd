// Package command interprets free-text voice transcripts into a closed set of intents.
package command

import "expensetracker/internal/core"

// View is a presentation the external shell can open.
type View string

const (
	PieChart  View = "pie_chart"
	Summary   View = "summary"
	Dashboard View = "dashboard"
	Help      View = "help"
)

// Intent is one of AddExpense, ShowView or Unrecognized.
type Intent interface {
	isIntent()
}

// AddExpense asks to record Amount under the category the hint resolves to.
// Resolution is left to the dispatcher.
type AddExpense struct {
	Amount       core.Money
	CategoryHint string
}

type ShowView struct {
	View View
}

type Unrecognized struct {
	Raw string
}

func (AddExpense) isIntent()   {}
func (ShowView) isIntent()     {}
func (Unrecognized) isIntent() {}
