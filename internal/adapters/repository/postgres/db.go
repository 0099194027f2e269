package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/migrate"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/postgres/migrations"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

func ConnString(host, port, user, password, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbName)
}

// Open connects and pings. The caller owns the returned pool.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	return migrate.Apply(ctx, db, migrations.FS, migrate.Postgres)
}

// Rollback runs the down migration matching name.
func Rollback(ctx context.Context, db *sql.DB, name string) (string, error) {
	return migrate.Down(ctx, db, migrations.FS, migrate.Postgres, name)
}

func hasSQLState(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func isUniqueViolation(err error) bool {
	return hasSQLState(err, sqlStateUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasSQLState(err, sqlStateForeignKeyViolation)
}
