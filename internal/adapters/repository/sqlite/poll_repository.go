package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO polls (id, question, created_by, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		poll.ID, poll.Question, poll.CreatedBy, poll.IsActive, toMillis(poll.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return domain.StoreError("insert poll", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO poll_options (id, poll_id, text, position, vote_count) VALUES (?, ?, ?, ?, 0)`,
	)
	if err != nil {
		return domain.StoreError("prepare option statement", err)
	}
	defer stmt.Close()

	for _, opt := range poll.Options {
		if _, err := stmt.ExecContext(ctx, opt.ID, opt.PollID, opt.Text, opt.Position); err != nil {
			return domain.StoreError("insert option", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("commit poll", err)
	}
	return nil
}

func (r *pollRepository) Stop(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("begin transaction", err)
	}
	defer tx.Rollback()

	var isActive bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM polls WHERE id = ?`, id).Scan(&isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPollNotFound
		}
		return domain.StoreError("get poll", err)
	}
	if !isActive {
		return domain.ErrPollAlreadyStopped
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE polls SET is_active = 0, stopped_at = ? WHERE id = ? AND is_active = 1`,
		toMillis(timeNow()), id,
	)
	if err != nil {
		return domain.StoreError("stop poll", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("commit stop", err)
	}
	return nil
}

const pollColumns = `p.id, p.question, p.created_by, p.is_active, p.created_at, p.stopped_at`

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	polls, err := r.queryPollsWithOptions(ctx,
		`SELECT `+pollColumns+`, o.id, o.text, o.position, o.vote_count
		   FROM polls p
		   LEFT JOIN poll_options o ON o.poll_id = p.id
		  WHERE p.id = ?
		  ORDER BY o.position`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(polls) == 0 {
		return nil, domain.ErrPollNotFound
	}
	return polls[0], nil
}

func (r *pollRepository) ListActive(ctx context.Context) ([]*domain.Poll, error) {
	return r.queryPollsWithOptions(ctx,
		`SELECT `+pollColumns+`, o.id, o.text, o.position, o.vote_count
		   FROM polls p
		   LEFT JOIN poll_options o ON o.poll_id = p.id
		  WHERE p.is_active = 1
		  ORDER BY p.created_at DESC, p.id, o.position`,
	)
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pollColumns+` FROM polls p ORDER BY p.created_at DESC, p.id`,
	)
	if err != nil {
		return nil, domain.StoreError("list polls", err)
	}
	defer rows.Close()

	polls := []*domain.Poll{}
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate polls", err)
	}
	return polls, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner, extra ...any) (*domain.Poll, error) {
	var (
		poll      domain.Poll
		createdAt int64
		stoppedAt sql.NullInt64
	)
	dest := append([]any{&poll.ID, &poll.Question, &poll.CreatedBy, &poll.IsActive, &createdAt, &stoppedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, domain.StoreError("scan poll", err)
	}
	poll.CreatedAt = fromMillis(createdAt)
	poll.StoppedAt = fromNullMillis(stoppedAt)
	return &poll, nil
}

// queryPollsWithOptions folds a poll x option join into polls, preserving the
// row order of the query.
func (r *pollRepository) queryPollsWithOptions(ctx context.Context, query string, args ...any) ([]*domain.Poll, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("query polls", err)
	}
	defer rows.Close()

	polls := []*domain.Poll{}
	var current *domain.Poll
	for rows.Next() {
		var (
			optID    sql.NullString
			optText  sql.NullString
			optPos   sql.NullInt64
			optVotes sql.NullInt64
		)
		poll, err := scanPoll(rows, &optID, &optText, &optPos, &optVotes)
		if err != nil {
			return nil, err
		}
		if current == nil || current.ID != poll.ID {
			poll.Options = []domain.PollOption{}
			polls = append(polls, poll)
			current = poll
		}
		if !optID.Valid {
			continue
		}
		optionID, err := uuid.Parse(optID.String)
		if err != nil {
			return nil, domain.StoreError("parse option id", err)
		}
		current.Options = append(current.Options, domain.PollOption{
			ID:        optionID,
			PollID:    current.ID,
			Text:      optText.String,
			Position:  int(optPos.Int64),
			VoteCount: optVotes.Int64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate polls", err)
	}
	return polls, nil
}
