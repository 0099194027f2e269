package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, question, created_by, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.ExecContext(ctx, queryPoll, poll.ID, poll.Question, poll.CreatedBy, poll.IsActive, poll.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return domain.StoreError("failed to insert poll", err)
	}

	queryOption := `
		INSERT INTO poll_options (id, poll_id, text, position, vote_count)
		VALUES ($1, $2, $3, $4, 0)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return domain.StoreError("failed to prepare option statement", err)
	}
	defer stmt.Close()

	for _, opt := range poll.Options {
		_, err = stmt.ExecContext(ctx, opt.ID, opt.PollID, opt.Text, opt.Position)
		if err != nil {
			return domain.StoreError("failed to insert option", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("failed to commit transaction", err)
	}

	return nil
}

func (r *pollRepository) Stop(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE polls SET is_active = FALSE, stopped_at = NOW()
		WHERE id = $1 AND is_active
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return domain.StoreError("failed to stop poll", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoreError("failed to stop poll", err)
	}
	if n == 1 {
		return nil
	}

	var isActive bool
	err = r.db.QueryRowContext(ctx, `SELECT is_active FROM polls WHERE id = $1`, id).Scan(&isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPollNotFound
		}
		return domain.StoreError("failed to get poll", err)
	}
	return domain.ErrPollAlreadyStopped
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	queryPoll := `
		SELECT id, question, created_by, is_active, created_at, stopped_at
		FROM polls
		WHERE id = $1
	`

	var poll domain.Poll
	err := r.db.QueryRowContext(ctx, queryPoll, id).Scan(
		&poll.ID, &poll.Question, &poll.CreatedBy, &poll.IsActive, &poll.CreatedAt, &poll.StoppedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, domain.StoreError("failed to get poll", err)
	}

	polls := []*domain.Poll{&poll}
	if err := r.attachOptions(ctx, polls); err != nil {
		return nil, err
	}

	return &poll, nil
}

func (r *pollRepository) ListActive(ctx context.Context) ([]*domain.Poll, error) {
	query := `
		SELECT id, question, created_by, is_active, created_at, stopped_at
		FROM polls
		WHERE is_active
		ORDER BY created_at DESC, id
	`
	polls, err := r.queryPolls(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := r.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	query := `
		SELECT id, question, created_by, is_active, created_at, stopped_at
		FROM polls
		ORDER BY created_at DESC, id
	`
	return r.queryPolls(ctx, query)
}

func (r *pollRepository) queryPolls(ctx context.Context, query string, args ...any) ([]*domain.Poll, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("failed to list polls", err)
	}
	defer rows.Close()

	polls := []*domain.Poll{}
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(&poll.ID, &poll.Question, &poll.CreatedBy, &poll.IsActive, &poll.CreatedAt, &poll.StoppedAt); err != nil {
			return nil, domain.StoreError("failed to scan poll", err)
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("error iterating polls", err)
	}
	return polls, nil
}

// attachOptions loads the options of every poll with one query, keeping
// creation order inside each poll.
func (r *pollRepository) attachOptions(ctx context.Context, polls []*domain.Poll) error {
	if len(polls) == 0 {
		return nil
	}

	ids := make([]string, 0, len(polls))
	byID := make(map[uuid.UUID]*domain.Poll, len(polls))
	for _, p := range polls {
		ids = append(ids, p.ID.String())
		byID[p.ID] = p
		p.Options = []domain.PollOption{}
	}

	queryOptions := `
		SELECT id, poll_id, text, position, vote_count
		FROM poll_options
		WHERE poll_id = ANY($1::uuid[])
		ORDER BY poll_id, position
	`
	rows, err := r.db.QueryContext(ctx, queryOptions, pq.Array(ids))
	if err != nil {
		return domain.StoreError("failed to get poll options", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.VoteCount); err != nil {
			return domain.StoreError("failed to scan option", err)
		}
		if p, ok := byID[opt.PollID]; ok {
			p.Options = append(p.Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.StoreError("error iterating options", err)
	}
	return nil
}
