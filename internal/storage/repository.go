// Package storage archives report snapshots in SQLite. The archive is write
// mostly: nothing in it is ever loaded back into the ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound is returned when a snapshot id does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

// SnapshotRecord is an archived snapshot with its row id.
type SnapshotRecord struct {
	ID                 int64
	CategorySetVersion int
	Snapshot           core.Snapshot
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateArchive(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the archive migration version applied at open.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schemaVersion }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Export archives the snapshot and its per-category lines in one transaction.
func (r *SQLiteRepository) Export(ctx context.Context, snap core.Snapshot) (string, error) {
	id, err := r.SaveSnapshot(ctx, snap)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("snapshot:%d", id), nil
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap core.Snapshot) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO report_snapshots (generated_at, grand_total_cents, category_set_version) VALUES (?, ?, ?)`,
		snap.GeneratedAt.UTC(), snap.Summary.GrandTotal.Cents, core.CategorySetVersion)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	for i, line := range snap.Summary.ByCategory {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_snapshot_lines (snapshot_id, position, category, amount_cents) VALUES (?, ?, ?, ?)`,
			id, i, string(line.Category), line.Amount.Cents); err != nil {
			return 0, fmt.Errorf("insert snapshot line %s: %w", line.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot archived to SQLite",
		"id", id,
		"generated_at", snap.GeneratedAt,
		"grand_total_cents", snap.Summary.GrandTotal.Cents)

	return id, nil
}

// GetSnapshot reads one archived snapshot.
func (r *SQLiteRepository) GetSnapshot(ctx context.Context, id int64) (SnapshotRecord, error) {
	rec := SnapshotRecord{ID: id}
	var generatedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT generated_at, grand_total_cents, category_set_version FROM report_snapshots WHERE id = ?`, id).
		Scan(&generatedAt, &rec.Snapshot.Summary.GrandTotal.Cents, &rec.CategorySetVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	rec.Snapshot.GeneratedAt = generatedAt

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, amount_cents FROM report_snapshot_lines WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get snapshot lines %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			cents    int64
		)
		if err := rows.Scan(&category, &cents); err != nil {
			return SnapshotRecord{}, fmt.Errorf("scan snapshot line: %w", err)
		}
		rec.Snapshot.Summary.ByCategory = append(rec.Snapshot.Summary.ByCategory, core.CategoryAmount{
			Category: core.Category(category),
			Amount:   core.Money{Cents: cents},
		})
	}
	if err := rows.Err(); err != nil {
		return SnapshotRecord{}, fmt.Errorf("iterate snapshot lines: %w", err)
	}

	return rec, nil
}

// CountSnapshots returns how many snapshots the archive holds.
func (r *SQLiteRepository) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
