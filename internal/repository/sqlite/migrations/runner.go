package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Migration describes one embedded migration file and when it was applied.
type Migration struct {
	Filename  string
	AppliedAt *time.Time
}

// Run applies all unapplied migrations from the embedded FS to the database.
// It tracks applied migrations in a schema_migrations table and returns the
// filenames applied by this call.
func Run(ctx context.Context, db *sql.DB) ([]string, error) {
	status, err := Status(ctx, db)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range status {
		if m.AppliedAt != nil {
			slog.Debug("migration already applied", "file", m.Filename)
			continue
		}

		if err := applyMigration(ctx, db, m.Filename); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Filename, err)
		}
		slog.Info("migration applied", "file", m.Filename)
		applied = append(applied, m.Filename)
	}

	return applied, nil
}

// Status lists every embedded migration in order with its applied time,
// creating the tracking table if needed.
func Status(ctx context.Context, db *sql.DB) ([]Migration, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("get applied migrations: %w", err)
	}

	files, err := listMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}

	status := make([]Migration, len(files))
	for i, filename := range files {
		status[i] = Migration{Filename: filename}
		if at, ok := applied[filename]; ok {
			status[i].AppliedAt = &at
		}
	}
	return status, nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func getAppliedMigrations(ctx context.Context, db *sql.DB) (map[string]time.Time, error) {
	rows, err := db.QueryContext(ctx, "SELECT filename, applied_at FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var filename string
		var at time.Time
		if err := rows.Scan(&filename, &at); err != nil {
			return nil, err
		}
		applied[filename] = at
	}
	return applied, rows.Err()
}

func listMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applyMigration(ctx context.Context, db *sql.DB, filename string) error {
	content, err := fs.ReadFile(FS, filename)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("execute sql: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)",
		filename, time.Now().UTC()); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
