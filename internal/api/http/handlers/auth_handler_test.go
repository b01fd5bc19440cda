package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/user-service/internal/api/http"
	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeUserRepo struct {
	users  []*domain.User
	nextID int64
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users = append(r.users, user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeTokenRepo struct {
	records []*domain.TokenRecord
	err     error
}

func (r *fakeTokenRepo) Create(_ context.Context, record *domain.TokenRecord) error {
	if r.err != nil {
		return apperrors.NewPersistenceError(r.err)
	}
	record.ID = int64(len(r.records) + 1)
	r.records = append(r.records, record)
	return nil
}

type testEnv struct {
	app    *fiber.App
	users  *fakeUserRepo
	tokens *fakeTokenRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       testSecret,
			JWTIssuer:       "user-service",
			TokenTTLMinutes: 120,
			BcryptCost:      bcrypt.MinCost,
		},
	}

	users := &fakeUserRepo{}
	tokens := &fakeTokenRepo{}

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:  users,
		TokenRepo: tokens,
	})
	authMiddleware := auth.NewMiddleware(authService.TokenManager(), users)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("user-service", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	return &testEnv{app: app, users: users, tokens: tokens}
}

func (e *testEnv) seedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{Name: "Seeded", Email: email, PasswordHash: hash, Status: domain.UserStatusActive}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestLoginEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, "a@b.com", "correct")

	resp := postJSON(t, env.app, "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "correct",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	authData := data["auth"].(map[string]any)
	assert.NotEmpty(t, authData["access_token"])
	assert.NotEmpty(t, authData["refresh_token"])
	assert.NotEmpty(t, authData["expires_at"])

	require.Len(t, env.tokens.records, 1)
	assert.Equal(t, seeded.ID, env.tokens.records[0].UserID)
}

func TestLoginEndpoint_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.app, "/auth/login", map[string]string{
		"email":    "missing@x.com",
		"password": "anything",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	errData := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_CREDENTIALS", errData["code"])
	assert.Empty(t, env.tokens.records)
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "a@b.com", "correct")

	resp := postJSON(t, env.app, "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, env.tokens.records)
}

func TestLoginEndpoint_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.app, "/auth/login", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginEndpoint_PersistFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "a@b.com", "correct")
	env.tokens.err = errors.New("storage outage")

	resp := postJSON(t, env.app, "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "correct",
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	errData := body["error"].(map[string]any)
	assert.Equal(t, "PERSISTENCE_ERROR", errData["code"])
	// no token material leaks on a failed persist
	_, hasData := body["data"]
	assert.False(t, hasData)
}

func TestRegisterEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.app, "/auth/register", map[string]string{
		"name":     "New User",
		"email":    "new@b.com",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "new@b.com", user["email"])
	require.Len(t, env.tokens.records, 1)
}

func TestRegisterEndpoint_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "a@b.com", "correct")

	resp := postJSON(t, env.app, "/auth/register", map[string]string{
		"name":     "Dup",
		"email":    "a@b.com",
		"password": "whatever",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "a@b.com", "correct")

	login := postJSON(t, env.app, "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "correct",
	})
	require.Equal(t, http.StatusOK, login.StatusCode)

	body := decodeBody(t, login)
	token := body["data"].(map[string]any)["auth"].(map[string]any)["access_token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	me := decodeBody(t, resp)
	user := me["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "a@b.com", user["email"])
}

func TestMeEndpoint_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	resp, err := env.app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
