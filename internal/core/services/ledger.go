package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type voteLedger struct {
	voteRepo ports.VoteRepository
	logger   *slog.Logger
}

func NewVoteLedger(voteRepo ports.VoteRepository, logger *slog.Logger) ports.VoteLedger {
	return &voteLedger{
		voteRepo: voteRepo,
		logger:   resolveLogger(logger),
	}
}

// CastVote admits at most one vote per (user, poll).
//
// The HasVoted lookup only short-circuits the common repeat case. Correctness
// rests on the repository: the unique (user_id, poll_id) key and the
// vote_count increment are applied in one store transaction, so two
// concurrent requests can never both pass. Removing that guarantee in favour
// of this lookup would reintroduce a lost-update race.
func (l *voteLedger) CastVote(ctx context.Context, userID, pollID, optionID uuid.UUID) error {
	hasVoted, err := l.voteRepo.HasVoted(ctx, pollID, userID)
	if err != nil {
		return err
	}
	if hasVoted {
		return domain.ErrDuplicateVote
	}

	vote := &domain.Vote{
		UserID:    userID,
		PollID:    pollID,
		OptionID:  optionID,
		CreatedAt: time.Now().UTC(),
	}

	if err := l.voteRepo.CastVote(ctx, vote); err != nil {
		if errors.Is(err, domain.ErrStore) {
			l.logger.Error("vote admission failed", "poll_id", pollID, "user_id", userID, "error", err)
		} else {
			l.logger.Debug("vote rejected", "poll_id", pollID, "user_id", userID, "reason", err)
		}
		return err
	}

	l.logger.Info("vote admitted", "poll_id", pollID, "option_id", optionID, "user_id", userID)
	return nil
}

func (l *voteLedger) GetTally(ctx context.Context, pollID uuid.UUID) (domain.Tally, error) {
	return l.voteRepo.Tally(ctx, pollID)
}
