package ports

import (
	"context"

	"github.com/vncsmyrnk/poll/internal/core/domain"
)

// AuthProvider issues and verifies bearer credentials carrying the caller's
// capability.
type AuthProvider interface {
	Issue(user *domain.User) (string, error)
	Verify(token string) (domain.Caller, error)
}

type TokenPayload struct {
	Email string
	Name  string
}

// TokenVerifier validates third party identity tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

type RegisterInput struct {
	Username string
	Password string
	IsAdmin  bool
	AdminKey string
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	LoginWithGoogle(ctx context.Context, credential string) (*AuthResult, error)
	Authenticate(token string) (domain.Caller, error)
}
