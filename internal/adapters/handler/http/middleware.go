package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/vncsmyrnk/poll/internal/core/domain"
)

type contextKey string

const callerKey contextKey = "caller"

const accessTokenCookie = "access_token"

// Authenticator verifies a bearer credential.
type Authenticator interface {
	Authenticate(token string) (domain.Caller, error)
}

// Authenticate resolves the caller from the Authorization header, falling
// back to the access_token cookie, and rejects the request when neither
// verifies.
func Authenticate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := authn.Authenticate(bearerToken(r))
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the caller stored by Authenticate. The zero
// Caller is returned for anonymous requests.
func CallerFromContext(ctx context.Context) domain.Caller {
	caller, _ := ctx.Value(callerKey).(domain.Caller)
	return caller
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
