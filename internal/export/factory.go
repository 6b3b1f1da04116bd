package export

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/storage"
)

// Factory creates exporters based on configuration
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new exporter factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create builds the exporter selected by config.
func (f *Factory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileExporter(config)
	case SQLiteBackend:
		return f.createSQLiteExporter(config)
	case SheetsBackend:
		return f.createSheetsExporter(ctx, config)
	case MemoryBackend:
		f.logger.Info("Initialized memory exporter")
		return &Result{Exporter: NewMemory()}, nil
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", config.Type)
	}
}

func (f *Factory) createFileExporter(config Config) (*Result, error) {
	exp, err := NewFileExporter(config.Directory, config.Format)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized file exporter",
		"directory", config.Directory,
		"format", exp.format)

	return &Result{Exporter: exp}, nil
}

func (f *Factory) createSQLiteExporter(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite snapshot archive", "db_path", config.SQLiteDBPath)

	return &Result{
		Exporter: repo,
		Cleanup:  repo.Close,
	}, nil
}

func (f *Factory) createSheetsExporter(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets exporter", "sheet", cli.SheetName())

	return &Result{Exporter: cli}, nil
}
