package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

const minPollOptions = 2

type pollRegistry struct {
	repo   ports.PollRepository
	logger *slog.Logger
}

// NewPollRegistry owns poll identity and the Active -> Stopped lifecycle.
func NewPollRegistry(repo ports.PollRepository, logger *slog.Logger) ports.PollRegistry {
	return &pollRegistry{
		repo:   repo,
		logger: resolveLogger(logger),
	}
}

func (r *pollRegistry) CreatePoll(ctx context.Context, question string, options []string, createdBy uuid.UUID) (*domain.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.Validation("question is required")
	}
	if len(options) < minPollOptions {
		return nil, domain.Validation(fmt.Sprintf("at least %d options are required", minPollOptions))
	}

	pollID := uuid.New()
	poll := &domain.Poll{
		ID:        pollID,
		Question:  question,
		CreatedBy: createdBy,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		Options:   make([]domain.PollOption, 0, len(options)),
	}

	for i, optText := range options {
		optText = strings.TrimSpace(optText)
		if optText == "" {
			return nil, domain.Validation(fmt.Sprintf("option %d is empty", i+1))
		}
		poll.Options = append(poll.Options, domain.PollOption{
			ID:       uuid.New(),
			PollID:   pollID,
			Text:     optText,
			Position: i,
		})
	}

	if err := r.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	r.logger.Info("poll created", "poll_id", poll.ID, "created_by", createdBy, "options", len(poll.Options))
	return poll, nil
}

func (r *pollRegistry) StopPoll(ctx context.Context, pollID uuid.UUID) error {
	if err := r.repo.Stop(ctx, pollID); err != nil {
		return err
	}
	r.logger.Info("poll stopped", "poll_id", pollID)
	return nil
}

func (r *pollRegistry) GetActivePolls(ctx context.Context) ([]*domain.Poll, error) {
	return r.repo.ListActive(ctx)
}

func (r *pollRegistry) GetAllPolls(ctx context.Context) ([]*domain.Poll, error) {
	return r.repo.GetAll(ctx)
}

func (r *pollRegistry) GetPollWithOptions(ctx context.Context, pollID uuid.UUID) (*domain.Poll, error) {
	return r.repo.GetByID(ctx, pollID)
}
