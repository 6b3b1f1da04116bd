package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "archive.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndGetSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	snap := core.Snapshot{
		GeneratedAt: time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC),
		Summary: core.SummaryFromTotals(map[core.Category]core.Money{
			core.Food:      {Cents: 1250},
			core.Marketing: {Cents: 99900},
		}),
	}

	ref, err := repo.Export(ctx, snap)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref != "snapshot:1" {
		t.Errorf("unexpected ref %q", ref)
	}

	got, err := repo.GetSnapshot(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CategorySetVersion != core.CategorySetVersion {
		t.Errorf("unexpected version %d", got.CategorySetVersion)
	}
	if got.Snapshot.Summary.GrandTotal.Cents != 101150 {
		t.Errorf("unexpected grand total %d", got.Snapshot.Summary.GrandTotal.Cents)
	}
	if len(got.Snapshot.Summary.ByCategory) != len(core.Categories()) {
		t.Fatalf("expected %d lines, got %d", len(core.Categories()), len(got.Snapshot.Summary.ByCategory))
	}
	first := got.Snapshot.Summary.ByCategory[0]
	if first.Category != core.Food || first.Amount.Cents != 1250 {
		t.Errorf("unexpected first line %+v", first)
	}
	if !got.Snapshot.GeneratedAt.Equal(snap.GeneratedAt) {
		t.Errorf("generated_at mismatch: %v vs %v", got.Snapshot.GeneratedAt, snap.GeneratedAt)
	}

	n, err := repo.CountSnapshots(ctx)
	if err != nil || n != 1 {
		t.Errorf("expected 1 snapshot, got %d (err=%v)", n, err)
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetSnapshot(context.Background(), 42); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	first := repo.SchemaVersion()
	repo.Close()
	if first != 1 {
		t.Errorf("expected schema version 1, got %d", first)
	}

	version, err := migrateArchive(path)
	if err != nil {
		t.Fatalf("second migration run should be a no-op: %v", err)
	}
	if version != first {
		t.Errorf("schema version moved from %d to %d", first, version)
	}
}
