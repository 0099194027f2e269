// Package jwtauth issues and verifies HS256 access tokens carrying the
// caller's user id and admin capability.
package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

const issuer = "poll"

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type Provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewProvider returns a provider signing with secret. A zero ttl issues
// tokens without an expiry.
func NewProvider(secret []byte, ttl time.Duration) (*Provider, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	return &Provider{secret: secret, ttl: ttl, now: time.Now}, nil
}

func (p *Provider) Issue(user *domain.User) (string, error) {
	now := p.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  user.ID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
	if p.ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(p.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(p.secret)
}

func (p *Provider) Verify(token string) (domain.Caller, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("parse token: %w", err)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("invalid subject: %w", err)
	}

	return domain.Caller{UserID: userID, Username: c.Username, IsAdmin: c.IsAdmin}, nil
}

var _ ports.AuthProvider = (*Provider)(nil)
