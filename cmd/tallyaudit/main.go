package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/poll/internal/adapters/repository/store"
	"github.com/vncsmyrnk/poll/internal/config"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "Database driver (postgres or sqlite)")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DBName, "db-name", cfg.Postgres.DBName, "Database name")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	auditService := services.NewAuditService(st.Polls, st.Votes, logger)

	logger.Info("starting tally audit")

	drifts, err := auditService.AuditAll(ctx)
	if err != nil {
		logger.Error("tally audit failed", "error", err)
		os.Exit(1)
	}

	for _, d := range drifts {
		logger.Warn("tally drift",
			"poll_id", d.PollID,
			"option_id", d.OptionID,
			"recorded", d.Recorded,
			"counted", d.Counted,
		)
	}
	if len(drifts) > 0 {
		st.Close()
		os.Exit(1)
	}

	logger.Info("tally audit completed", "drifts", 0)
}
