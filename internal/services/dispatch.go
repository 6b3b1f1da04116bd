package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/command"
	"expensetracker/internal/core"
)

// Outcome is what the shell needs after a command: the parsed intent, the
// ingestion result for add commands, and a message to show.
type Outcome struct {
	Intent    command.Intent
	Ingestion *Ingestion
	View      command.View
	Message   string
}

// Execute interprets a transcript and dispatches it.
func (s *ExpenseService) Execute(ctx context.Context, transcript string) (Outcome, error) {
	return s.Dispatch(ctx, command.Interpret(transcript))
}

// Dispatch acts on an intent. AddExpense resolves its category hint by prefix
// and records; a hint that resolves to nothing fails without touching state.
// View intents are returned for the shell to open.
func (s *ExpenseService) Dispatch(ctx context.Context, intent command.Intent) (Outcome, error) {
	out := Outcome{Intent: intent}
	switch in := intent.(type) {
	case command.AddExpense:
		category, err := core.ResolveCategory(in.CategoryHint)
		if err != nil {
			slog.WarnContext(ctx, "Voice add rejected", "hint", in.CategoryHint, "error", err)
			return out, err
		}
		ing, err := s.RecordExpense(ctx, category, in.Amount)
		if err != nil {
			return out, err
		}
		out.Ingestion = &ing
		out.Message = ing.Message
	case command.ShowView:
		out.View = in.View
		if in.View == command.Help {
			out.Message = command.HelpText
		}
	case command.Unrecognized:
		out.Message = fmt.Sprintf("Command not recognized: %s", in.Raw)
	default:
		return out, fmt.Errorf("unsupported intent %T", intent)
	}
	return out, nil
}
