// Package report renders read-only expense summaries as CSV, plain text and
// the QR payload block.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// Format selects an export rendering.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
)

// FormatForPath picks CSV for ".csv" files and text for everything else.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatText
}

// DefaultFilename is the suggested report name for the given day.
func DefaultFilename(at time.Time, f Format) string {
	ext := ".txt"
	if f == FormatCSV {
		ext = ".csv"
	}
	return "expense_report_" + at.Format("20060102") + ext
}

// Write renders s in format f.
func Write(w io.Writer, f Format, s core.Summary, generatedAt time.Time) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, s)
	case FormatText:
		return WriteText(w, s, generatedAt)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// WriteCSV writes a header, one row per category and a GRAND TOTAL row.
func WriteCSV(w io.Writer, s core.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Category", "Amount (" + core.CurrencySymbol + ")"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, ca := range s.ByCategory {
		if err := cw.Write([]string{ca.Category.String(), ca.Amount.Plain()}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := cw.Write([]string{"GRAND TOTAL", s.GrandTotal.Plain()}); err != nil {
		return fmt.Errorf("write csv total: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes the aligned company expense report.
func WriteText(w io.Writer, s core.Summary, generatedAt time.Time) error {
	var b strings.Builder
	b.WriteString("=== COMPANY EXPENSE REPORT ===\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", generatedAt.Format(time.DateTime))
	for _, ca := range s.ByCategory {
		b.WriteString(textRow(ca.Category.String(), ca.Amount))
	}
	b.WriteString("\n")
	b.WriteString(textRow("GRAND TOTAL", s.GrandTotal))

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func textRow(label string, m core.Money) string {
	return fmt.Sprintf("%-20s: %s%10s\n", label, core.CurrencySymbol, m.Plain())
}

// QRPayload is the text encoded into the summary QR code.
func QRPayload(s core.Summary, generatedAt time.Time) string {
	lines := make([]string, 0, len(s.ByCategory))
	for _, ca := range s.ByCategory {
		lines = append(lines, fmt.Sprintf("%s: %s", ca.Category, ca.Amount))
	}
	var b strings.Builder
	b.WriteString("=== Expense Summary ===\n")
	b.WriteString(strings.Join(lines, "\n"))
	fmt.Fprintf(&b, "\n\nGrand Total: %s", s.GrandTotal)
	fmt.Fprintf(&b, "\nGenerated on: %s", generatedAt.Format("2006-01-02 15:04"))
	return b.String()
}
