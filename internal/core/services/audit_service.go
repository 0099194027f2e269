package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type auditService struct {
	pollRepo ports.PollRepository
	voteRepo ports.VoteRepository
	logger   *slog.Logger
}

// NewAuditService checks that every option's vote_count equals the number of
// vote rows pointing at it. It never writes.
func NewAuditService(pollRepo ports.PollRepository, voteRepo ports.VoteRepository, logger *slog.Logger) ports.AuditService {
	return &auditService{
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		logger:   resolveLogger(logger),
	}
}

func (s *auditService) AuditAll(ctx context.Context) ([]domain.TallyDrift, error) {
	polls, err := s.pollRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all polls: %w", err)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		drifts []domain.TallyDrift
	)
	errChan := make(chan error, len(polls))

	for _, poll := range polls {
		wg.Add(1)
		go func(pollID uuid.UUID) {
			defer wg.Done()
			found, err := s.auditPoll(ctx, pollID)
			if err != nil {
				errChan <- fmt.Errorf("failed to audit poll %s: %w", pollID, err)
				return
			}
			if len(found) > 0 {
				mu.Lock()
				drifts = append(drifts, found...)
				mu.Unlock()
			}
		}(poll.ID)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].PollID != drifts[j].PollID {
			return drifts[i].PollID.String() < drifts[j].PollID.String()
		}
		return drifts[i].OptionID.String() < drifts[j].OptionID.String()
	})

	s.logger.Info("tally audit finished", "polls", len(polls), "drifts", len(drifts))
	return drifts, nil
}

func (s *auditService) auditPoll(ctx context.Context, pollID uuid.UUID) ([]domain.TallyDrift, error) {
	recorded, err := s.voteRepo.Tally(ctx, pollID)
	if err != nil {
		return nil, err
	}
	counted, err := s.voteRepo.CountVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}

	var drifts []domain.TallyDrift
	for optionID, n := range recorded {
		if counted[optionID] != n {
			drifts = append(drifts, domain.TallyDrift{
				PollID:   pollID,
				OptionID: optionID,
				Recorded: n,
				Counted:  counted[optionID],
			})
		}
	}
	for optionID, n := range counted {
		if _, ok := recorded[optionID]; !ok {
			drifts = append(drifts, domain.TallyDrift{
				PollID:   pollID,
				OptionID: optionID,
				Counted:  n,
			})
		}
	}
	return drifts, nil
}
