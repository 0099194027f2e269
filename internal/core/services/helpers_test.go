package services_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

type testEnv struct {
	DB       *sql.DB
	Polls    ports.PollRepository
	Votes    ports.VoteRepository
	Users    ports.UserRepository
	Registry ports.PollRegistry
	Ledger   ports.VoteLedger
	Service  ports.PollService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "poll.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		DB:    db,
		Polls: sqlite.NewPollRepository(db),
		Votes: sqlite.NewVoteRepository(db),
		Users: sqlite.NewUserRepository(db),
	}
	env.Registry = services.NewPollRegistry(env.Polls, nil)
	env.Ledger = services.NewVoteLedger(env.Votes, nil)
	env.Service = services.NewPollService(env.Registry, env.Ledger)
	return env
}

func (e *testEnv) createUser(t *testing.T, isAdmin bool) domain.Caller {
	t.Helper()

	user := &domain.User{
		ID:        uuid.New(),
		Username:  fmt.Sprintf("user-%s", uuid.NewString()),
		IsAdmin:   isAdmin,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.Users.Create(context.Background(), user))
	return domain.Caller{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}
}

func (e *testEnv) createPoll(t *testing.T, admin domain.Caller, question string, options ...string) *domain.Poll {
	t.Helper()

	poll, err := e.Service.CreatePoll(context.Background(), admin, ports.CreatePollInput{
		Question: question,
		Options:  options,
	})
	require.NoError(t, err)
	return poll
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
