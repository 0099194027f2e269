package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// CastVote runs admission and tallying in one transaction.
//
// The poll row is read FOR SHARE so a concurrent Stop (an UPDATE on the same
// row) waits for in-flight admissions and every admission that starts after
// the stop commits sees is_active = false. The votes primary key on
// (user_id, poll_id) decides duplicate races: a concurrent insert for the same
// key blocks until the first commits and then inserts nothing. The increment
// only runs when the insert wrote a row.
func (r *voteRepository) CastVote(ctx context.Context, vote *domain.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var isActive bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM polls WHERE id = $1 FOR SHARE`, vote.PollID).Scan(&isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPollNotFound
		}
		return domain.StoreError("failed to lock poll", err)
	}
	if !isActive {
		return domain.ErrPollInactive
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM poll_options WHERE id = $1 AND poll_id = $2`,
		vote.OptionID, vote.PollID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrInvalidOption
		}
		return domain.StoreError("failed to check option", err)
	}

	queryVote := `
		INSERT INTO votes (user_id, poll_id, option_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, poll_id) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, queryVote, vote.UserID, vote.PollID, vote.OptionID, vote.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrDuplicateVote
		case isForeignKeyViolation(err):
			return domain.ErrUserNotFound
		}
		return domain.StoreError("failed to save vote", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return domain.StoreError("failed to save vote", err)
	}
	if inserted == 0 {
		return domain.ErrDuplicateVote
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE poll_options SET vote_count = vote_count + 1 WHERE id = $1 AND poll_id = $2`,
		vote.OptionID, vote.PollID,
	)
	if err != nil {
		return domain.StoreError("failed to increment vote count", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return domain.StoreError("failed to increment vote count", errors.Join(err, errors.New("option row not updated")))
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("failed to commit vote", err)
	}
	return nil
}

func (r *voteRepository) HasVoted(ctx context.Context, pollID, userID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM votes WHERE poll_id = $1 AND user_id = $2`
	var exists int
	err := r.db.QueryRowContext(ctx, query, pollID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, domain.StoreError("failed to check existing vote", err)
	}
	return true, nil
}

func (r *voteRepository) Tally(ctx context.Context, pollID uuid.UUID) (domain.Tally, error) {
	query := `SELECT id, vote_count FROM poll_options WHERE poll_id = $1`
	tally, err := r.scanTally(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	// every poll owns at least two options
	if len(tally) == 0 {
		return nil, domain.ErrPollNotFound
	}
	return tally, nil
}

func (r *voteRepository) CountVotes(ctx context.Context, pollID uuid.UUID) (domain.Tally, error) {
	query := `
		SELECT option_id, COUNT(*)
		FROM votes
		WHERE poll_id = $1
		GROUP BY option_id
	`
	return r.scanTally(ctx, query, pollID)
}

func (r *voteRepository) scanTally(ctx context.Context, query string, pollID uuid.UUID) (domain.Tally, error) {
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, domain.StoreError("failed to fetch tally", err)
	}
	defer rows.Close()

	tally := make(domain.Tally)
	for rows.Next() {
		var optionID uuid.UUID
		var count int64
		if err := rows.Scan(&optionID, &count); err != nil {
			return nil, domain.StoreError("failed to scan tally", err)
		}
		tally[optionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("error iterating tally", err)
	}
	return tally, nil
}
