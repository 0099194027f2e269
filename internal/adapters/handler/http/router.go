package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/vncsmyrnk/poll/docs"
)

type Handlers struct {
	Poll *PollHandler
	Vote *VoteHandler
	Auth *AuthHandler
	User *UserHandler
}

func NewHandler(h Handlers, authn Authenticator, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// cors treats an empty origin list as "allow all", so only cross-origin
	// deployments that name their origins get the middleware.
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Post("/oauth/google", h.Auth.GoogleLogin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(authn))

			r.Get("/me", h.User.GetMe)

			r.Route("/polls", func(r chi.Router) {
				r.Get("/", h.Poll.ListActive)
				r.Post("/", h.Poll.CreatePoll)
				r.Get("/all", h.Poll.ListAll)
				r.Post("/{id}/stop", h.Poll.StopPoll)
				r.Get("/{id}/stats", h.Poll.Stats)
				r.Post("/{id}/vote", h.Vote.VoteOnPoll)
			})
		})
	})

	return r
}
