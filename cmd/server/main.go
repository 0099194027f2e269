package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vncsmyrnk/poll/internal/adapters/auth/jwtauth"
	"github.com/vncsmyrnk/poll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/poll/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/store"
	"github.com/vncsmyrnk/poll/internal/config"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

// @title       Poll API
// @version     1.0
// @description Authenticated polling service.
// @BasePath    /
func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, err := jwtauth.NewProvider([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}

	// Initialize Services
	registry := services.NewPollRegistry(st.Polls, logger)
	ledger := services.NewVoteLedger(st.Votes, logger)
	pollService := services.NewPollService(registry, ledger)
	userService := services.NewUserService(st.Users)
	authService := services.NewAuthService(st.Users, provider, google.NewVerifier(), services.AuthConfig{
		AdminRegistrationKey: cfg.AdminRegistrationKey,
		GoogleClientID:       cfg.GoogleClientID,
	}, logger)

	handler := http.NewHandler(http.Handlers{
		Poll: http.NewPollHandler(pollService),
		Vote: http.NewVoteHandler(pollService),
		Auth: http.NewAuthHandler(authService, cfg.TokenTTL),
		User: http.NewUserHandler(userService),
	}, authService, cfg.AllowedOrigins)

	server := &stdhttp.Server{Addr: fmt.Sprintf("0.0.0.0:%d", cfg.Port), Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
