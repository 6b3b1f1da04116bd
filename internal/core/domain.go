package core

import (
	"errors"
	"fmt"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// LedgerEntry is a single accepted expense. Entries are never mutated.
	LedgerEntry struct {
		ID        string
		Category  Category
		Amount    Money
		Timestamp time.Time
	}

	// Quarter is a fiscal quarter, 1 through 4.
	Quarter int

	SavingsGoal struct {
		Quarter Quarter
		Target  Money
		Saved   Money
	}

	AlertKind string

	// Alert describes one overrun condition. Department is empty for company-wide alerts.
	Alert struct {
		Kind       AlertKind
		Department Department
		Overage    Money
	}
)

const (
	AlertDepartmentOverrun AlertKind = "department_overrun"
	AlertCompanyOverrun    AlertKind = "company_overrun"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrUnknownDepartment = errors.New("unknown department")
)

// CollaboratorError wraps a failure of an external collaborator (OCR, speech,
// insights, export). It never carries partial ledger state.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Validate accepts amounts in (0, MaxEntryCents].
func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxEntryCents {
		return ErrInvalidAmount
	}
	return nil
}

func (e LedgerEntry) Validate() error {
	if !e.Category.Valid() {
		return ErrUnknownCategory
	}
	return e.Amount.Validate()
}

// QuarterOf returns the quarter containing t: floor((month-1)/3)+1.
func QuarterOf(t time.Time) Quarter {
	return Quarter((int(t.Month())-1)/3 + 1)
}

// Quarters lists Q1..Q4 in order.
func Quarters() []Quarter {
	return []Quarter{1, 2, 3, 4}
}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d", int(q))
}

// Progress returns saved/target as a percentage; zero when the target is not positive.
func (g SavingsGoal) Progress() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	return float64(g.Saved.Cents) / float64(g.Target.Cents) * 100
}

// Message renders the alert the way the dashboard shows it.
func (a Alert) Message() string {
	switch a.Kind {
	case AlertDepartmentOverrun:
		return fmt.Sprintf("Budget overrun in %s: %s over budget", a.Department, a.Overage)
	case AlertCompanyOverrun:
		return fmt.Sprintf("Company-wide budget overrun: %s over monthly budget", a.Overage)
	default:
		return fmt.Sprintf("%s: %s", a.Kind, a.Overage)
	}
}

func (a Alert) String() string {
	return a.Message()
}
