package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type pollService struct {
	registry ports.PollRegistry
	ledger   ports.VoteLedger
}

func NewPollService(registry ports.PollRegistry, ledger ports.VoteLedger) ports.PollService {
	return &pollService{
		registry: registry,
		ledger:   ledger,
	}
}

func requireCaller(caller domain.Caller) error {
	if !caller.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}

func requireAdmin(caller domain.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (s *pollService) ListActivePolls(ctx context.Context, caller domain.Caller) ([]*domain.Poll, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.registry.GetActivePolls(ctx)
}

func (s *pollService) ListAllPolls(ctx context.Context, caller domain.Caller) ([]*domain.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.registry.GetAllPolls(ctx)
}

func (s *pollService) CreatePoll(ctx context.Context, caller domain.Caller, input ports.CreatePollInput) (*domain.Poll, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.registry.CreatePoll(ctx, input.Question, input.Options, caller.UserID)
}

func (s *pollService) StopPoll(ctx context.Context, caller domain.Caller, pollID uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return s.registry.StopPoll(ctx, pollID)
}

func (s *pollService) Vote(ctx context.Context, caller domain.Caller, input ports.VoteInput) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	return s.ledger.CastVote(ctx, caller.UserID, input.PollID, input.OptionID)
}

func (s *pollService) PollStats(ctx context.Context, caller domain.Caller, pollID uuid.UUID) (*domain.PollStats, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	poll, err := s.registry.GetPollWithOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}

	tally, err := s.ledger.GetTally(ctx, pollID)
	if err != nil {
		return nil, err
	}

	total := tally.Total()
	stats := &domain.PollStats{
		Poll:       poll,
		Options:    make([]domain.OptionStats, 0, len(poll.Options)),
		TotalVotes: total,
	}

	for _, opt := range poll.Options {
		opt.VoteCount = tally[opt.ID]
		percentage := 0.0
		if total > 0 {
			percentage = (float64(opt.VoteCount) / float64(total)) * 100
		}
		stats.Options = append(stats.Options, domain.OptionStats{
			PollOption: opt,
			Percentage: percentage,
		})
	}

	return stats, nil
}
