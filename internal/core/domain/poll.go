package domain

import (
	"time"

	"github.com/google/uuid"
)

type Poll struct {
	ID        uuid.UUID    `json:"id"`
	Question  string       `json:"question"`
	CreatedBy uuid.UUID    `json:"created_by"`
	IsActive  bool         `json:"is_active"`
	Options   []PollOption `json:"options,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	StoppedAt *time.Time   `json:"stopped_at,omitempty"`
}

// PollOption is one selectable answer. Position is the creation order within
// the poll and is what options are sorted by when read back.
type PollOption struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	Text      string    `json:"text"`
	Position  int       `json:"position"`
	VoteCount int64     `json:"vote_count"`
}

type OptionStats struct {
	PollOption
	Percentage float64 `json:"percentage"`
}

type PollStats struct {
	Poll       *Poll         `json:"poll"`
	Options    []OptionStats `json:"options"`
	TotalVotes int64         `json:"total_votes"`
}
