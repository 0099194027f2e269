// Package store opens the repositories for the configured driver.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vncsmyrnk/poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/poll/internal/config"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type Store struct {
	DB    *sql.DB
	Polls ports.PollRepository
	Votes ports.VoteRepository
	Users ports.UserRepository

	driver string
}

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.ConnString())
		if err != nil {
			return nil, err
		}
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logApplied(logger, applied)
		return &Store{
			DB:     db,
			Polls:  postgres.NewPollRepository(db),
			Votes:  postgres.NewVoteRepository(db),
			Users:  postgres.NewUserRepository(db),
			driver: cfg.DBDriver,
		}, nil
	case config.DriverSQLite:
		db, err := sqlite.Connect(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		applied, err := sqlite.Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logApplied(logger, applied)
		return &Store{
			DB:     db,
			Polls:  sqlite.NewPollRepository(db),
			Votes:  sqlite.NewVoteRepository(db),
			Users:  sqlite.NewUserRepository(db),
			driver: cfg.DBDriver,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// Rollback runs the named down migration against the store.
func (s *Store) Rollback(ctx context.Context, name string) (string, error) {
	if s.driver == config.DriverSQLite {
		return sqlite.Rollback(ctx, s.DB, name)
	}
	return postgres.Rollback(ctx, s.DB, name)
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func logApplied(logger *slog.Logger, applied []string) {
	if logger == nil {
		return
	}
	for _, name := range applied {
		logger.Info("migration applied", "name", name)
	}
}
