package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

// PollRepository persists polls and their options.
type PollRepository interface {
	// Save writes the poll and every option in a single transaction.
	Save(ctx context.Context, poll *domain.Poll) error
	// Stop flips is_active to false. It returns domain.ErrPollNotFound or
	// domain.ErrPollAlreadyStopped when nothing was updated.
	Stop(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	ListActive(ctx context.Context) ([]*domain.Poll, error)
	GetAll(ctx context.Context) ([]*domain.Poll, error)
}

type PollRegistry interface {
	CreatePoll(ctx context.Context, question string, options []string, createdBy uuid.UUID) (*domain.Poll, error)
	StopPoll(ctx context.Context, pollID uuid.UUID) error
	GetActivePolls(ctx context.Context) ([]*domain.Poll, error)
	GetAllPolls(ctx context.Context) ([]*domain.Poll, error)
	GetPollWithOptions(ctx context.Context, pollID uuid.UUID) (*domain.Poll, error)
}

type CreatePollInput struct {
	Question string
	Options  []string
}

type VoteInput struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
}

// PollService is the capability checked entry point used by transports.
type PollService interface {
	ListActivePolls(ctx context.Context, caller domain.Caller) ([]*domain.Poll, error)
	ListAllPolls(ctx context.Context, caller domain.Caller) ([]*domain.Poll, error)
	CreatePoll(ctx context.Context, caller domain.Caller, input CreatePollInput) (*domain.Poll, error)
	StopPoll(ctx context.Context, caller domain.Caller, pollID uuid.UUID) error
	Vote(ctx context.Context, caller domain.Caller, input VoteInput) error
	PollStats(ctx context.Context, caller domain.Caller, pollID uuid.UUID) (*domain.PollStats, error)
}
