package jwtauth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

func TestIssueAndVerify(t *testing.T) {
	p, err := NewProvider([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	user := &domain.User{ID: uuid.New(), Username: "alice", IsAdmin: true}
	token, err := p.Issue(user)
	require.NoError(t, err)

	caller, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, caller.UserID)
	assert.Equal(t, "alice", caller.Username)
	assert.True(t, caller.IsAdmin)
}

func TestNewProviderRequiresSecret(t *testing.T) {
	_, err := NewProvider(nil, time.Hour)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	p, err := NewProvider([]byte("test-secret"), time.Minute)
	require.NoError(t, err)

	issuedAt := time.Now().Add(-time.Hour)
	p.now = func() time.Time { return issuedAt }
	token, err := p.Issue(&domain.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer, err := NewProvider([]byte("other-secret"), time.Hour)
	require.NoError(t, err)
	verifier, err := NewProvider([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(&domain.User{ID: uuid.New(), Username: "alice", IsAdmin: true})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	p, err := NewProvider([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: uuid.NewString()},
		IsAdmin:          true,
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}

func TestVerifyRejectsBadSubject(t *testing.T) {
	p, err := NewProvider([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "not-a-uuid"},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = p.Verify(signed)
	assert.Error(t, err)
}
