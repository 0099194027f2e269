package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func pollIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.Validation("invalid poll id")
	}
	return id, nil
}

// ListActive godoc
// @Summary      Lists running polls
// @Description  Returns every active poll with its options in creation order.
// @Tags         polls
// @Produce      json
// @Success      200
// @Failure      401
// @Router       /api/polls [get]
func (h *PollHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListActivePolls(r.Context(), CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

// ListAll godoc
// @Summary      Lists every poll
// @Tags         polls
// @Produce      json
// @Success      200
// @Failure      401
// @Failure      403
// @Router       /api/polls/all [get]
func (h *PollHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListAllPolls(r.Context(), CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

// CreatePoll godoc
// @Summary      Creates a poll
// @Description  Admin only. Requires a question and at least two options.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      403
// @Router       /api/polls [post]
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req createPollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		// the capability check still wins over a malformed body
		if !caller.IsAdmin {
			err = domain.ErrForbidden
		}
		writeError(w, r, err)
		return
	}

	poll, err := h.service.CreatePoll(r.Context(), caller, ports.CreatePollInput{
		Question: req.Question,
		Options:  req.Options,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, poll)
}

// StopPoll godoc
// @Summary      Stops a poll
// @Description  Admin only. A stopped poll never becomes active again.
// @Tags         polls
// @Success      204
// @Failure      403
// @Failure      404
// @Failure      409
// @Router       /api/polls/{id}/stop [post]
func (h *PollHandler) StopPoll(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	pollID, err := pollIDParam(r)
	if err != nil {
		if !caller.IsAdmin {
			err = domain.ErrForbidden
		}
		writeError(w, r, err)
		return
	}

	if err := h.service.StopPoll(r.Context(), caller, pollID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats godoc
// @Summary      Poll results
// @Description  Admin only. Returns the poll, per-option counts and percentages.
// @Tags         polls
// @Produce      json
// @Success      200
// @Failure      403
// @Failure      404
// @Router       /api/polls/{id}/stats [get]
func (h *PollHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	pollID, err := pollIDParam(r)
	if err != nil {
		if !caller.IsAdmin {
			err = domain.ErrForbidden
		}
		writeError(w, r, err)
		return
	}

	stats, err := h.service.PollStats(r.Context(), caller, pollID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
