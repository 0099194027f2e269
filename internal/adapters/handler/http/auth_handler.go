package http

import (
	"net/http"
	"time"

	"github.com/vncsmyrnk/poll/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	tokenTTL    time.Duration
}

func NewAuthHandler(authService ports.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
	AdminKey string `json:"admin_key"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register godoc
// @Summary      Registers a user
// @Description  Creates a user and returns an access token. Admin registration requires the configured admin key.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      403
// @Failure      409
// @Router       /api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), ports.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
		AdminKey: req.AdminKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setAccessTokenCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, result)
}

// Login godoc
// @Summary      Logs a user in
// @Description  Exchanges username and password for an access token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      401
// @Router       /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setAccessTokenCookie(w, result.Token)
	writeJSON(w, http.StatusOK, result)
}

// GoogleLogin godoc
// @Summary      Logs a user in with a Google ID token
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Success      200
// @Failure      400
// @Failure      401
// @Router       /oauth/google [post]
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	credential := r.FormValue("credential")
	if credential == "" {
		http.Error(w, "Missing credential", http.StatusBadRequest)
		return
	}

	result, err := h.authService.LoginWithGoogle(r.Context(), credential)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setAccessTokenCookie(w, result.Token)
	writeJSON(w, http.StatusOK, result)
}

// Logout godoc
// @Summary      Logs the authenticated user out
// @Description  Clears the access token cookie
// @Tags         auth
// @Success      200
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) setAccessTokenCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.tokenTTL > 0 {
		cookie.MaxAge = int(h.tokenTTL.Seconds())
	}
	http.SetCookie(w, cookie)
}
