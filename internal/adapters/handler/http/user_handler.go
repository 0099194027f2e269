package http

import (
	"net/http"

	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// GetMe godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Success      200
// @Failure      401
// @Failure      404
// @Router       /api/me [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	user, err := h.service.GetByID(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
