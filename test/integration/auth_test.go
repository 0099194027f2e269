package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

func TestRegisterLoginAndMe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	// 1. Register
	_, caller := registerUser(t, app, "alice", false)
	assert.False(t, caller.IsAdmin)

	// 2. Duplicate username -> 409
	resp := app.request(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "x"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// 3. Login
	resp = app.request(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()

	// 4. Me
	resp = app.request(t, http.MethodGet, "/api/me", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, caller.UserID, me.ID)
	assert.Equal(t, "alice", me.Username)

	// 5. Wrong password -> 401
	resp = app.request(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "nope"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRegistrationRequiresKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	resp := app.request(t, http.MethodPost, "/api/register", "", map[string]any{
		"username":  "eve",
		"password":  "password",
		"is_admin":  true,
		"admin_key": "guess",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, admin := registerUser(t, app, "root", true)
	assert.True(t, admin.IsAdmin)
}
