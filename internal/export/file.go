package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/internal/core"
	"expensetracker/internal/report"
)

// FileExporter writes one report file per snapshot into a directory.
type FileExporter struct {
	dir    string
	format report.Format
}

func NewFileExporter(dir string, format report.Format) (*FileExporter, error) {
	if format == "" {
		format = report.FormatText
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &FileExporter{dir: dir, format: format}, nil
}

// Export writes the report and returns its path. A report for the same day
// and format is overwritten.
func (e *FileExporter) Export(ctx context.Context, snap core.Snapshot) (string, error) {
	path := filepath.Join(e.dir, report.DefaultFilename(snap.GeneratedAt, e.format))
	if err := WriteFile(path, snap); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Report exported",
		"path", path,
		"format", e.format,
		"grand_total_cents", snap.Summary.GrandTotal.Cents)

	return path, nil
}

// WriteFile renders snap to path, choosing CSV or text by the extension.
func WriteFile(path string, snap core.Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report file: %w", cerr)
		}
	}()

	return report.Write(f, report.FormatForPath(path), snap.Summary, snap.GeneratedAt)
}
