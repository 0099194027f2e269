package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poll/internal/adapters/auth/jwtauth"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"github.com/vncsmyrnk/poll/internal/core/services"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdminKey = "admin-key"
	testOrigin   = "http://app.test"
)

type testApp struct {
	Server *httptest.Server
	Client *http.Client
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "poll.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	provider, err := jwtauth.NewProvider([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	pollRepo := sqlite.NewPollRepository(db)
	voteRepo := sqlite.NewVoteRepository(db)
	userRepo := sqlite.NewUserRepository(db)

	pollService := services.NewPollService(
		services.NewPollRegistry(pollRepo, nil),
		services.NewVoteLedger(voteRepo, nil),
	)
	authService := services.NewAuthService(userRepo, provider, nil, services.AuthConfig{
		AdminRegistrationKey: testAdminKey,
		BcryptCost:           bcrypt.MinCost,
	}, nil)

	handler := NewHandler(Handlers{
		Poll: NewPollHandler(pollService),
		Vote: NewVoteHandler(pollService),
		Auth: NewAuthHandler(authService, time.Hour),
		User: NewUserHandler(services.NewUserService(userRepo)),
	}, authService, []string{testOrigin})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testApp{Server: server, Client: server.Client()}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, a.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) register(t *testing.T, username string, admin bool) string {
	t.Helper()

	payload := map[string]any{"username": username, "password": "secret"}
	if admin {
		payload["is_admin"] = true
		payload["admin_key"] = testAdminKey
	}
	resp := a.do(t, http.MethodPost, "/api/register", "", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func (a *testApp) createPoll(t *testing.T, token string, question string, options ...string) domain.Poll {
	t.Helper()

	resp := a.do(t, http.MethodPost, "/api/polls", token, map[string]any{"question": question, "options": options})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var poll domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&poll))
	return poll
}

func TestRegisterLoginAndMe(t *testing.T) {
	app := setupTestApp(t)
	app.register(t, "alice", false)

	resp := app.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == accessTokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var result ports.AuthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	resp = app.do(t, http.MethodGet, "/api/me", result.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "alice", raw["username"])
	assert.NotContains(t, raw, "password_hash")
	assert.NotContains(t, raw, "PasswordHash")
}

func TestMeWithCookie(t *testing.T) {
	app := setupTestApp(t)
	token := app.register(t, "alice", false)

	req, err := http.NewRequest(http.MethodGet, app.Server.URL+"/api/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthErrors(t *testing.T) {
	app := setupTestApp(t)
	app.register(t, "alice", false)

	resp := app.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/api/register", "", map[string]any{"username": "eve", "password": "x", "is_admin": true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/api/polls", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/api/polls", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPollLifecycle(t *testing.T) {
	app := setupTestApp(t)
	admin := app.register(t, "admin", true)
	userA := app.register(t, "a", false)
	userB := app.register(t, "b", false)

	poll := app.createPoll(t, admin, "Lunch?", "Pizza", "Salad")
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "Pizza", poll.Options[0].Text)

	resp := app.do(t, http.MethodGet, "/api/polls", userA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active []domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	require.Len(t, active, 1)
	assert.Equal(t, poll.ID, active[0].ID)

	votePath := fmt.Sprintf("/api/polls/%s/vote", poll.ID)
	resp = app.do(t, http.MethodPost, votePath, userA, map[string]any{"option_id": poll.Options[0].ID})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, http.MethodPost, votePath, userA, map[string]any{"option_id": poll.Options[1].ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, http.MethodPost, votePath, userB, map[string]any{"option_id": uuid.New()})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%s/vote", uuid.New()), userB, map[string]any{"option_id": poll.Options[0].ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/api/polls/not-a-uuid/vote", userB, map[string]any{"option_id": poll.Options[0].ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	statsPath := fmt.Sprintf("/api/polls/%s/stats", poll.ID)
	resp = app.do(t, http.MethodGet, statsPath, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats domain.PollStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalVotes)
	require.Len(t, stats.Options, 2)
	assert.Equal(t, int64(1), stats.Options[0].VoteCount)
	assert.InDelta(t, 100.0, stats.Options[0].Percentage, 0.001)

	stopPath := fmt.Sprintf("/api/polls/%s/stop", poll.ID)
	resp = app.do(t, http.MethodPost, stopPath, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.do(t, http.MethodPost, stopPath, admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, http.MethodPost, votePath, userB, map[string]any{"option_id": poll.Options[1].ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/api/polls", userB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	active = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	assert.Empty(t, active)

	resp = app.do(t, http.MethodGet, "/api/polls/all", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
}

func TestAdminRoutesForbidRegularUsers(t *testing.T) {
	app := setupTestApp(t)
	admin := app.register(t, "admin", true)
	user := app.register(t, "user", false)
	poll := app.createPoll(t, admin, "Q?", "A", "B")

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/polls", map[string]any{"question": "", "options": []string{}}},
		{http.MethodPost, "/api/polls", map[string]any{"question": "Q?", "options": []string{"A", "B"}}},
		{http.MethodGet, "/api/polls/all", nil},
		{http.MethodPost, fmt.Sprintf("/api/polls/%s/stop", poll.ID), nil},
		{http.MethodPost, "/api/polls/not-a-uuid/stop", nil},
		{http.MethodGet, fmt.Sprintf("/api/polls/%s/stats", poll.ID), nil},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := app.do(t, tt.method, tt.path, user, tt.body)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestCreatePollValidation(t *testing.T) {
	app := setupTestApp(t)
	admin := app.register(t, "admin", true)

	resp := app.do(t, http.MethodPost, "/api/polls", admin, map[string]any{"question": "Q?", "options": []string{"only"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/api/polls", admin, map[string]any{"question": "Q?", "options": []string{"A", " "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(t, http.MethodGet, fmt.Sprintf("/api/polls/%s/stats", uuid.New()), admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, http.MethodPost, fmt.Sprintf("/api/polls/%s/stop", uuid.New()), admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Validation("x"), http.StatusBadRequest},
		{domain.ErrInvalidOption, http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrPollNotFound, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrDuplicateVote, http.StatusConflict},
		{domain.ErrPollInactive, http.StatusConflict},
		{domain.ErrPollAlreadyStopped, http.StatusConflict},
		{domain.ErrUsernameTaken, http.StatusConflict},
		{domain.StoreError("op", fmt.Errorf("boom")), http.StatusInternalServerError},
		{fmt.Errorf("anything"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWriteErrorHidesStoreDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, domain.StoreError("insert vote", fmt.Errorf("disk on fire")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestCORSOnlyReflectsConfiguredOrigins(t *testing.T) {
	app := setupTestApp(t)

	for origin, want := range map[string]string{
		testOrigin:         testOrigin,
		"http://evil.test": "",
	} {
		req, err := http.NewRequest(http.MethodGet, app.Server.URL+"/api/", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)

		resp, err := app.Client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.Header.Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestNoCORSWithoutOrigins(t *testing.T) {
	handler := NewHandler(Handlers{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestWriteErrorUnauthorizedUsesSentinelText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: token is malformed: could not base64 decode header", domain.ErrUnauthenticated), domain.ErrUnauthenticated.Error()},
		{fmt.Errorf("%w: invalid google token: audience mismatch", domain.ErrInvalidCredentials), domain.ErrInvalidCredentials.Error()},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, tt.want, strings.TrimSpace(rec.Body.String()))
	}
}

func TestBadTokenResponseHidesParserDetail(t *testing.T) {
	app := setupTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/me", "garbage.token.value", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, domain.ErrUnauthenticated.Error(), strings.TrimSpace(string(body)))
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	app := setupTestApp(t)
	admin := app.register(t, "admin", true)
	user := app.register(t, "user", false)
	poll := app.createPoll(t, admin, "Q?", "A", "B")

	huge := strings.Repeat("a", maxBodyBytes+1)
	tests := []struct {
		name  string
		path  string
		token string
		body  any
	}{
		{"register", "/api/register", "", map[string]string{"username": huge, "password": "x"}},
		{"login", "/api/login", "", map[string]string{"username": huge, "password": "x"}},
		{"create poll", "/api/polls", admin, map[string]any{"question": huge, "options": []string{"A", "B"}}},
		{"vote", fmt.Sprintf("/api/polls/%s/vote", poll.ID), user, map[string]any{"option_id": poll.Options[0].ID, "padding": huge}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.do(t, http.MethodPost, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		})
	}

	var tally domain.PollStats
	resp := app.do(t, http.MethodGet, fmt.Sprintf("/api/polls/%s/stats", poll.ID), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tally))
	assert.Equal(t, int64(0), tally.TotalVotes)
}
