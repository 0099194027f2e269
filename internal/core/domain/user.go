package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Caller is the verified identity of whoever issued a command.
type Caller struct {
	UserID   uuid.UUID
	Username string
	IsAdmin  bool
}

func (c Caller) Authenticated() bool {
	return c.UserID != uuid.Nil
}
