// Package export writes summary snapshots to an external destination: report
// files, an SQLite archive or a Google spreadsheet.
package export

import (
	"context"

	"expensetracker/internal/core"
)

// Exporter receives read-only snapshots. It returns a backend specific
// reference to what it wrote (file path, row id, sheet range).
type Exporter interface {
	Export(ctx context.Context, snap core.Snapshot) (ref string, err error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the exporter instance and optional cleanup function
type Result struct {
	Exporter Exporter
	Cleanup  CleanupFunc
}

// Type represents the export backend
type Type string

const (
	FileBackend   Type = "file"
	SQLiteBackend Type = "sqlite"
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case FileBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{FileBackend, SQLiteBackend, SheetsBackend, MemoryBackend}
}
