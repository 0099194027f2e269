package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("admin capability required")
	ErrPollNotFound       = errors.New("poll not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrPollInactive       = errors.New("poll is not active")
	ErrPollAlreadyStopped = errors.New("poll is already stopped")
	ErrInvalidOption      = errors.New("invalid option for this poll")
	ErrDuplicateVote      = errors.New("user has already voted")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrStore              = errors.New("internal server error")
)

// Validation wraps ErrValidation with a human readable reason.
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// StoreError marks err as a persistence failure. Callers can still reach the
// driver error with errors.As.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
