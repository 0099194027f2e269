package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

type VoteRepository interface {
	// CastVote admits the vote and bumps the option's vote_count as one
	// transaction. The (user_id, poll_id) key is enforced by the store, so
	// of N concurrent calls for the same key exactly one returns nil and the
	// rest return domain.ErrDuplicateVote.
	CastVote(ctx context.Context, vote *domain.Vote) error
	HasVoted(ctx context.Context, pollID, userID uuid.UUID) (bool, error)
	Tally(ctx context.Context, pollID uuid.UUID) (domain.Tally, error)
	// CountVotes counts vote rows per option, ignoring vote_count.
	CountVotes(ctx context.Context, pollID uuid.UUID) (domain.Tally, error)
}

type VoteLedger interface {
	CastVote(ctx context.Context, userID, pollID, optionID uuid.UUID) error
	GetTally(ctx context.Context, pollID uuid.UUID) (domain.Tally, error)
}

type AuditService interface {
	AuditAll(ctx context.Context) ([]domain.TallyDrift, error)
}
