package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote binds one user to one option within one poll. At most one exists per
// (UserID, PollID).
type Vote struct {
	UserID    uuid.UUID `json:"user_id"`
	PollID    uuid.UUID `json:"poll_id"`
	OptionID  uuid.UUID `json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Tally maps an option id to its committed vote count.
type Tally map[uuid.UUID]int64

func (t Tally) Total() int64 {
	var total int64
	for _, n := range t {
		total += n
	}
	return total
}

// TallyDrift is an option whose stored vote_count disagrees with the number
// of vote rows pointing at it.
type TallyDrift struct {
	PollID   uuid.UUID `json:"poll_id"`
	OptionID uuid.UUID `json:"option_id"`
	Recorded int64     `json:"recorded"`
	Counted  int64     `json:"counted"`
}
