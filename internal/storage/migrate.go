package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var archiveMigrations embed.FS

// migrateArchive applies pending snapshot archive migrations and reports the
// resulting schema version. A dirty schema is an error: it means a previous
// run stopped halfway and needs manual repair.
func migrateArchive(dbPath string) (uint, error) {
	// migrate closes the handle it is given, so it gets its own.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open archive for migration: %w", err)
	}
	defer conn.Close()

	target, err := sqlite.WithInstance(conn, &sqlite.Config{MigrationsTable: "archive_schema_migrations"})
	if err != nil {
		return 0, fmt.Errorf("sqlite migration target: %w", err)
	}
	scripts, err := iofs.New(archiveMigrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("embedded migration scripts: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", scripts, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply archive migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read archive schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("archive schema version %d is dirty", version)
	}
	return version, nil
}
