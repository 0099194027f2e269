package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/vncsmyrnk/poll/internal/adapters/auth/jwtauth"
	handler "github.com/vncsmyrnk/poll/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

const testAdminKey = "integration-admin-key"

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	PollSvc     ports.PollService
	AuditSvc    ports.AuditService
	DBContainer testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()

	ctx := context.Background()
	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := repo.Open(ctx, dbURL)
	require.NoError(t, err)

	_, err = repo.Migrate(ctx, db)
	require.NoError(t, err)

	provider, err := jwtauth.NewProvider([]byte("test-secret"), 15*time.Minute)
	require.NoError(t, err)

	pollRepo := repo.NewPollRepository(db)
	voteRepo := repo.NewVoteRepository(db)
	userRepo := repo.NewUserRepository(db)

	pollSvc := services.NewPollService(
		services.NewPollRegistry(pollRepo, nil),
		services.NewVoteLedger(voteRepo, nil),
	)
	authSvc := services.NewAuthService(userRepo, provider, nil, services.AuthConfig{
		AdminRegistrationKey: testAdminKey,
		BcryptCost:           bcrypt.MinCost,
	}, nil)
	auditSvc := services.NewAuditService(pollRepo, voteRepo, nil)

	router := handler.NewHandler(handler.Handlers{
		Poll: handler.NewPollHandler(pollSvc),
		Vote: handler.NewVoteHandler(pollSvc),
		Auth: handler.NewAuthHandler(authSvc, 15*time.Minute),
		User: handler.NewUserHandler(services.NewUserService(userRepo)),
	}, authSvc, nil)

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		PollSvc:     pollSvc,
		AuditSvc:    auditSvc,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %s", err)
	}
}

func (app *TestApp) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	return resp
}

// registerUser signs a user up over HTTP and returns its token and caller.
func registerUser(t *testing.T, app *TestApp, username string, admin bool) (string, domain.Caller) {
	t.Helper()

	payload := map[string]any{"username": username, "password": "password"}
	if admin {
		payload["is_admin"] = true
		payload["admin_key"] = testAdminKey
	}
	resp := app.request(t, http.MethodPost, "/api/register", "", payload)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result ports.AuthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	return result.Token, domain.Caller{
		UserID:   result.User.ID,
		Username: result.User.Username,
		IsAdmin:  result.User.IsAdmin,
	}
}

func createPoll(t *testing.T, app *TestApp, token string, question string, options ...string) domain.Poll {
	t.Helper()

	resp := app.request(t, http.MethodPost, "/api/polls", token, map[string]any{
		"question": question,
		"options":  options,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var poll domain.Poll
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&poll))
	return poll
}
