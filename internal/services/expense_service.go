package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"expensetracker/internal/budget"
	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/receipt"
)

// TextRecognizer is the OCR collaborator: image in, raw text out.
type TextRecognizer interface {
	ImageToText(ctx context.Context, imagePath string) (string, error)
}

// EventPublisher fans out accepted entries. Failures never affect the ledger.
type EventPublisher interface {
	PublishExpenseRecorded(ctx context.Context, entry core.LedgerEntry) error
}

// Config holds the engine's startup parameters.
type Config struct {
	Limits     budget.Limits
	OCRTimeout time.Duration
	// Clock drives entry timestamps and quarter selection. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns stock limits and a 30s OCR timeout.
func DefaultConfig() Config {
	return Config{
		Limits:     budget.DefaultLimits(),
		OCRTimeout: 30 * time.Second,
	}
}

// Ingestion is the result of one accepted expense.
type Ingestion struct {
	Entry   core.LedgerEntry
	Alerts  []core.Alert
	Message string
}

// ExpenseService owns the ledger and its derived aggregates. RecordExpense is
// the single mutation path; the mutex serializes it against readers and
// against any other producer that might call in.
type ExpenseService struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	agg    *budget.Aggregator
	alerts []core.Alert

	ocr        TextRecognizer
	publisher  EventPublisher
	ocrTimeout time.Duration
	now        func() time.Time
}

func NewExpenseService(cfg Config, ocr TextRecognizer, publisher EventPublisher) *ExpenseService {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	l := ledger.New(ledger.WithClock(now))
	return &ExpenseService{
		ledger:     l,
		agg:        budget.NewAggregator(l, cfg.Limits, budget.WithClock(now)),
		ocr:        ocr,
		publisher:  publisher,
		ocrTimeout: cfg.OCRTimeout,
		now:        now,
	}
}

// RecordExpense appends one entry, updates department and savings aggregates
// and recomputes alerts. Either all of that happens or nothing does.
func (s *ExpenseService) RecordExpense(ctx context.Context, category core.Category, amount core.Money) (Ingestion, error) {
	s.mu.Lock()
	entry, err := s.ledger.Record(category, amount)
	if err != nil {
		s.mu.Unlock()
		slog.WarnContext(ctx, "Rejected expense",
			"category", category,
			"amount_cents", amount.Cents,
			"error", err)
		return Ingestion{}, err
	}
	s.agg.OnRecord(entry.Category, entry.Amount)
	s.alerts = budget.Evaluate(s.agg)
	alerts := append([]core.Alert(nil), s.alerts...)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Expense recorded",
		"id", entry.ID,
		"category", entry.Category,
		"amount_cents", entry.Amount.Cents,
		"alerts", len(alerts))

	s.publish(ctx, entry)

	return Ingestion{
		Entry:   entry,
		Alerts:  alerts,
		Message: fmt.Sprintf("Added %s to %s", entry.Amount, entry.Category),
	}, nil
}

// RecordManual parses a typed amount and category name before recording.
func (s *ExpenseService) RecordManual(ctx context.Context, categoryName, amountText string) (Ingestion, error) {
	category, err := core.ParseCategory(categoryName)
	if err != nil {
		return Ingestion{}, err
	}
	cents, err := core.ParseDecimalToCents(amountText)
	if err != nil {
		return Ingestion{}, fmt.Errorf("amount %q: %w", amountText, core.ErrInvalidAmount)
	}
	ing, err := s.RecordExpense(ctx, category, core.Money{Cents: cents})
	if err != nil {
		return Ingestion{}, err
	}
	ing.Message = fmt.Sprintf("Manual entry of %s added successfully to %s at %s",
		ing.Entry.Amount, ing.Entry.Category, ing.Entry.Timestamp.Format(time.DateTime))
	return ing, nil
}

// UploadReceipt runs OCR on the image with a bounded timeout, extracts the
// total and records it. The OCR call happens outside the state lock and is
// attempted once.
func (s *ExpenseService) UploadReceipt(ctx context.Context, category core.Category, imagePath string) (Ingestion, error) {
	if !category.Valid() {
		return Ingestion{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, category)
	}
	if s.ocr == nil {
		return Ingestion{}, &core.CollaboratorError{Collaborator: "ocr", Err: errors.New("no OCR engine configured")}
	}

	ocrCtx := ctx
	if s.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ocrCtx, cancel = context.WithTimeout(ctx, s.ocrTimeout)
		defer cancel()
	}
	text, err := s.ocr.ImageToText(ocrCtx, imagePath)
	if err != nil {
		slog.ErrorContext(ctx, "OCR failed", "path", imagePath, "error", err)
		return Ingestion{}, &core.CollaboratorError{Collaborator: "ocr", Err: err}
	}
	return s.RecordReceiptText(ctx, category, text)
}

// RecordReceiptText extracts the total from already recognized receipt text.
func (s *ExpenseService) RecordReceiptText(ctx context.Context, category core.Category, text string) (Ingestion, error) {
	total, err := receipt.ExtractTotal(text)
	if err != nil {
		slog.WarnContext(ctx, "No total found in receipt text",
			"category", category,
			"total_lines", len(receipt.TotalLines(text)))
		return Ingestion{}, err
	}
	ing, err := s.RecordExpense(ctx, category, total)
	if err != nil {
		return Ingestion{}, err
	}
	ing.Message = fmt.Sprintf("Bill of %s added successfully to %s at %s",
		ing.Entry.Amount, ing.Entry.Category, ing.Entry.Timestamp.Format(time.DateTime))
	return ing, nil
}

// SetDepartmentLimit changes a department limit and re-evaluates alerts.
func (s *ExpenseService) SetDepartmentLimit(ctx context.Context, d core.Department, limit core.Money) ([]core.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.agg.SetDepartmentLimit(d, limit); err != nil {
		return nil, err
	}
	s.alerts = budget.Evaluate(s.agg)
	slog.InfoContext(ctx, "Department limit updated", "department", d, "limit_cents", limit.Cents)
	return append([]core.Alert(nil), s.alerts...), nil
}

// Totals returns a fresh per-category snapshot.
func (s *ExpenseService) Totals() map[core.Category]core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Totals()
}

func (s *ExpenseService) GrandTotal() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.GrandTotal()
}

// Summary returns totals in category order; it is the read-only payload for
// export, report and insights collaborators.
func (s *ExpenseService) Summary() core.Summary {
	return core.SummaryFromTotals(s.Totals())
}

// Entries returns a copy of the entries recorded under category.
func (s *ExpenseService) Entries(category core.Category) []core.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Entries(category)
}

// Evaluate recomputes the alert list, replacing the stored one.
func (s *ExpenseService) Evaluate() []core.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = budget.Evaluate(s.agg)
	return append([]core.Alert(nil), s.alerts...)
}

// Alerts returns the list computed at the last mutation.
func (s *ExpenseService) Alerts() []core.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Alert(nil), s.alerts...)
}

func (s *ExpenseService) publish(ctx context.Context, entry core.LedgerEntry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseRecorded(ctx, entry); err != nil {
		// The entry is already recorded; fan-out is best effort.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"id", entry.ID, "error", err)
	}
}

// Close closes collaborators that hold connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if c, ok := s.ocr.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ocr: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
