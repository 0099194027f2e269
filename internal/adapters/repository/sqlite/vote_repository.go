package sqlite

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
	return &voteRepository{db: db}
}

// CastVote checks the poll, inserts the vote and bumps vote_count inside one
// immediate transaction. SQLite holds the write lock for the whole
// transaction, so Stop and concurrent votes serialize around it; the
// (user_id, poll_id) primary key still decides duplicates.
func (r *voteRepository) CastVote(ctx context.Context, vote *domain.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("begin transaction", err)
	}
	defer tx.Rollback()

	var isActive bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM polls WHERE id = ?`, vote.PollID).Scan(&isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPollNotFound
		}
		return domain.StoreError("get poll", err)
	}
	if !isActive {
		return domain.ErrPollInactive
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM poll_options WHERE id = ? AND poll_id = ?`,
		vote.OptionID, vote.PollID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrInvalidOption
		}
		return domain.StoreError("check option", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO votes (user_id, poll_id, option_id, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, poll_id) DO NOTHING`,
		vote.UserID, vote.PollID, vote.OptionID, toMillis(vote.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrDuplicateVote
		case isForeignKeyViolation(err):
			return domain.ErrUserNotFound
		}
		return domain.StoreError("insert vote", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return domain.StoreError("insert vote", err)
	}
	if inserted == 0 {
		return domain.ErrDuplicateVote
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE poll_options SET vote_count = vote_count + 1 WHERE id = ? AND poll_id = ?`,
		vote.OptionID, vote.PollID,
	)
	if err != nil {
		return domain.StoreError("increment vote count", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return domain.StoreError("increment vote count", errors.Join(err, errors.New("option row not updated")))
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("commit vote", err)
	}
	return nil
}

func (r *voteRepository) HasVoted(ctx context.Context, pollID, userID uuid.UUID) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM votes WHERE poll_id = ? AND user_id = ?`, pollID, userID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, domain.StoreError("check existing vote", err)
	}
	return true, nil
}

func (r *voteRepository) Tally(ctx context.Context, pollID uuid.UUID) (domain.Tally, error) {
	tally, err := r.scanTally(ctx, `SELECT id, vote_count FROM poll_options WHERE poll_id = ?`, pollID)
	if err != nil {
		return nil, err
	}
	if len(tally) == 0 {
		return nil, domain.ErrPollNotFound
	}
	return tally, nil
}

func (r *voteRepository) CountVotes(ctx context.Context, pollID uuid.UUID) (domain.Tally, error) {
	return r.scanTally(ctx,
		`SELECT option_id, COUNT(*) FROM votes WHERE poll_id = ? GROUP BY option_id`, pollID,
	)
}

func (r *voteRepository) scanTally(ctx context.Context, query string, pollID uuid.UUID) (domain.Tally, error) {
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, domain.StoreError("query tally", err)
	}
	defer rows.Close()

	tally := make(domain.Tally)
	for rows.Next() {
		var optionID uuid.UUID
		var count int64
		if err := rows.Scan(&optionID, &count); err != nil {
			return nil, domain.StoreError("scan tally", err)
		}
		tally[optionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate tally", err)
	}
	return tally, nil
}
