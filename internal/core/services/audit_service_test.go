package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

func TestAuditAllClean(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, true)

	for i := 0; i < 3; i++ {
		poll := env.createPoll(t, admin, "Q?", "A", "B")
		voter := env.createUser(t, false)
		require.NoError(t, env.Service.Vote(ctx, voter, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[i%2].ID}))
	}

	audit := services.NewAuditService(env.Polls, env.Votes, nil)
	drifts, err := audit.AuditAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestAuditAllReportsDrift(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, true)
	voter := env.createUser(t, false)
	poll := env.createPoll(t, admin, "Q?", "A", "B")
	require.NoError(t, env.Service.Vote(ctx, voter, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID}))

	_, err := env.DB.Exec(`UPDATE poll_options SET vote_count = 5 WHERE id = ?`, poll.Options[1].ID)
	require.NoError(t, err)

	audit := services.NewAuditService(env.Polls, env.Votes, nil)
	drifts, err := audit.AuditAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, poll.ID, drifts[0].PollID)
	assert.Equal(t, poll.Options[1].ID, drifts[0].OptionID)
	assert.Equal(t, int64(5), drifts[0].Recorded)
	assert.Equal(t, int64(0), drifts[0].Counted)
}
