package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLength = 64

type AuthConfig struct {
	// AdminRegistrationKey must accompany a registration that asks for the
	// admin capability. Empty disables admin self-registration.
	AdminRegistrationKey string
	// GoogleClientID enables LoginWithGoogle when set.
	GoogleClientID string
	BcryptCost     int
}

type AuthService struct {
	userRepo            ports.UserRepository
	provider            ports.AuthProvider
	googleTokenVerifier ports.TokenVerifier
	cfg                 AuthConfig
	logger              *slog.Logger
}

func NewAuthService(userRepo ports.UserRepository, provider ports.AuthProvider, googleTokenVerifier ports.TokenVerifier, cfg AuthConfig, logger *slog.Logger) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:            userRepo,
		provider:            provider,
		googleTokenVerifier: googleTokenVerifier,
		cfg:                 cfg,
		logger:              resolveLogger(logger),
	}
}

func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, domain.Validation("username and password are required")
	}
	if len(username) > maxUsernameLength {
		return nil, domain.Validation(fmt.Sprintf("username must be at most %d characters", maxUsernameLength))
	}
	if input.IsAdmin && !s.adminKeyMatches(input.AdminKey) {
		return nil, domain.ErrForbidden
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      input.IsAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "is_admin", user.IsAdmin)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(user)
}

// LoginWithGoogle finds or creates a regular user named after the verified
// email. Such users have no password and can only sign in through Google. An
// email already held by a password or admin account is never signed into and
// reports domain.ErrUsernameTaken.
func (s *AuthService) LoginWithGoogle(ctx context.Context, credential string) (*ports.AuthResult, error) {
	if s.cfg.GoogleClientID == "" || s.googleTokenVerifier == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", domain.ErrInvalidCredentials)
	}

	payload, err := s.googleTokenVerifier.Verify(ctx, credential, s.cfg.GoogleClientID)
	if err != nil {
		s.logger.Debug("google token rejected", "error", err)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, payload.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &domain.User{
			ID:        uuid.New(),
			Username:  payload.Email,
			CreatedAt: time.Now().UTC(),
		}
		err := s.userRepo.Create(ctx, user)
		if errors.Is(err, domain.ErrUsernameTaken) {
			// lost a race with a concurrent first login or registration
			user, err = s.userRepo.GetByUsername(ctx, payload.Email)
		}
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, domain.ErrUserNotFound
		}
	}
	if !isGoogleAccount(user) {
		s.logger.Info("google sign-in refused for local account", "user_id", user.ID)
		return nil, domain.ErrUsernameTaken
	}

	return s.issue(user)
}

// isGoogleAccount reports whether user can only be reached through Google.
func isGoogleAccount(user *domain.User) bool {
	return user.PasswordHash == "" && !user.IsAdmin
}

func (s *AuthService) Authenticate(token string) (domain.Caller, error) {
	if token == "" {
		return domain.Caller{}, domain.ErrUnauthenticated
	}
	caller, err := s.provider.Verify(token)
	if err != nil {
		s.logger.Debug("access token rejected", "error", err)
		return domain.Caller{}, domain.ErrUnauthenticated
	}
	return caller, nil
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, err := s.provider.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &ports.AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) adminKeyMatches(key string) bool {
	if s.cfg.AdminRegistrationKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.AdminRegistrationKey)) == 1
}
