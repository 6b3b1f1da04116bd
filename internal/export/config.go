package export

import (
	"fmt"

	"expensetracker/internal/config"
	"expensetracker/internal/report"
)

// Config holds configuration for exporter creation
type Config struct {
	Type Type

	// File specific
	Directory string
	Format    report.Format

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// FromAppConfig converts the application config to export config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.ExportBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid export backend in config: %s", appConfig.ExportBackend)
	}

	return Config{
		Type:                t,
		Directory:           appConfig.ExportDir,
		Format:              report.Format(appConfig.ExportFormat),
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}, nil
}

// Validate validates the export configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid export backend: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.Directory == "" {
			return fmt.Errorf("export directory is required for file backend")
		}
		if c.Format != "" && c.Format != report.FormatText && c.Format != report.FormatCSV {
			return fmt.Errorf("unknown report format %q", c.Format)
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// Nothing to configure.
	}

	return nil
}
