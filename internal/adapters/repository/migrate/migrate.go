// Package migrate applies embedded *.up.sql migrations at most once per file
// and can roll a single migration back through its *.down.sql pair.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"
	upSuffix       = ".up.sql"
	downSuffix     = ".down.sql"
)

var ErrMigrationNotFound = errors.New("migration file not found")

// Dialect carries the statements that differ between drivers.
type Dialect struct {
	Name      string
	isApplied string
	record    string
	forget    string
}

var (
	Postgres = Dialect{
		Name:      "postgres",
		isApplied: "SELECT 1 FROM " + migrationTable + " WHERE name = $1",
		record:    "INSERT INTO " + migrationTable + " (name, applied_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING",
		forget:    "DELETE FROM " + migrationTable + " WHERE name = $1",
	}
	SQLite = Dialect{
		Name:      "sqlite",
		isApplied: "SELECT 1 FROM " + migrationTable + " WHERE name = ?",
		record:    "INSERT OR IGNORE INTO " + migrationTable + " (name, applied_at) VALUES (?, ?)",
		forget:    "DELETE FROM " + migrationTable + " WHERE name = ?",
	}
)

// Apply runs every pending up migration in lexical order, each in its own
// transaction. It returns the names it applied.
func Apply(ctx context.Context, db *sql.DB, migrationFS fs.FS, dialect Dialect) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}

	files, err := listFiles(migrationFS, upSuffix)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, file := range files {
		name := strings.TrimSuffix(file, upSuffix)

		done, err := isApplied(ctx, db, dialect, name)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", name, err)
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}

		err = inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return fmt.Errorf("exec migration %s: %w", name, err)
			}
			if _, err := tx.ExecContext(ctx, dialect.record, name, time.Now().UTC().UnixMilli()); err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}

	return applied, nil
}

// Down runs the down migration whose name contains migrationName and forgets
// that it was applied.
func Down(ctx context.Context, db *sql.DB, migrationFS fs.FS, dialect Dialect, migrationName string) (string, error) {
	file, err := FilePath(migrationFS, migrationName, downSuffix)
	if err != nil {
		return "", err
	}
	content, err := fs.ReadFile(migrationFS, file)
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", file, err)
	}
	if err := ensureTable(ctx, db); err != nil {
		return "", err
	}

	name := strings.TrimSuffix(file, downSuffix)
	err = inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, dialect.forget, name); err != nil {
			return fmt.Errorf("forget migration %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// FilePath finds the first file matching `^.*<migrationName><suffix>`.
func FilePath(migrationFS fs.FS, migrationName string, suffix string) (string, error) {
	regex, err := regexp.Compile(fmt.Sprintf(`^.*%s%s$`, regexp.QuoteMeta(migrationName), regexp.QuoteMeta(suffix)))
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	files, err := listFiles(migrationFS, suffix)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if regex.MatchString(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMigrationNotFound, migrationName)
}

func listFiles(migrationFS fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	createSQL := `
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
);`
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, dialect Dialect, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, dialect.isApplied, name).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
