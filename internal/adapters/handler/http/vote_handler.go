package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type VoteHandler struct {
	service ports.PollService
}

func NewVoteHandler(service ports.PollService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	OptionID uuid.UUID `json:"option_id"`
}

// VoteOnPoll godoc
// @Summary      Casts a vote
// @Description  One vote per user per poll. A second attempt fails with 409.
// @Tags         votes
// @Accept       json
// @Success      201
// @Failure      400
// @Failure      404
// @Failure      409
// @Router       /api/polls/{id}/vote [post]
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input := ports.VoteInput{
		PollID:   pollID,
		OptionID: req.OptionID,
	}

	if err := h.service.Vote(r.Context(), CallerFromContext(r.Context()), input); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "vote recorded"})
}
