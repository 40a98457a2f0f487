package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"music_auth/internal/auth"
	httpserver "music_auth/internal/http_server"
	"music_auth/internal/lib/jwt"
	"music_auth/internal/lib/logger/handlers/slogdiscard"
	"music_auth/internal/lib/password"
	"music_auth/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	handler http.Handler
	store   *memory.MemoryRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()
	store := memory.New()

	tokens, err := jwt.New("router-test-secret", 7*24*time.Hour)
	require.NoError(t, err)

	authService := auth.New(log, store, store, password.New(bcrypt.MinCost), tokens, nil, false)

	return &env{
		handler: httpserver.NewRouter(log, authService, httpserver.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			DisableRateLimit: true,
		}),
		store: store,
	}
}

func (e *env) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	var out map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}

	return rr.Code, out
}

type creds map[string]string

func TestAuthScenario(t *testing.T) {
	e := newEnv(t)

	code, reg := e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "alice", "email": "alice@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", reg["username"])
	assert.Equal(t, "alice@x.com", reg["email"])
	assert.NotEmpty(t, reg["id"])
	assert.NotEmpty(t, reg["createdAt"])
	assert.NotContains(t, reg, "password")
	assert.NotContains(t, reg, "PassHash")
	t1 := reg["token"].(string)
	require.NotEmpty(t, t1)

	code, login := e.do(t, http.MethodPost, "/api/auth/login", "",
		creds{"email": "alice@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	t2 := login["token"].(string)
	assert.NotEqual(t, t1, t2)
	assert.Equal(t, reg["id"], login["id"])

	for _, tok := range []string{t1, t2} {
		code, _ := e.do(t, http.MethodGet, "/api/auth/user", tok, nil)
		assert.Equal(t, http.StatusOK, code)
	}

	code, body := e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "alice2", "email": "alice@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists", body["message"])

	code, body = e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "alice", "email": "alice2@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Username is already taken", body["message"])

	id := uuid.MustParse(reg["id"].(string))
	before, err := e.store.UserByID(context.Background(), id)
	require.NoError(t, err)

	code, body = e.do(t, http.MethodPost, "/api/auth/change-password", t1,
		creds{"currentPassword": "wrong", "newPassword": "secret2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid credentials", body["message"])

	after, err := e.store.UserByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, before.PassHash, after.PassHash)

	code, body = e.do(t, http.MethodPost, "/api/auth/change-password", t1,
		creds{"currentPassword": "secret1", "newPassword": "secret2"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Password updated successfully", body["message"])

	code, profile := e.do(t, http.MethodGet, "/api/auth/user", t1, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, reg["id"], profile["id"])
	assert.Equal(t, "alice", profile["username"])
	assert.NotContains(t, profile, "token")

	code, _ = e.do(t, http.MethodPost, "/api/auth/login", "",
		creds{"email": "alice@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/api/auth/login", "",
		creds{"email": "alice@x.com", "password": "secret2"})
	assert.Equal(t, http.StatusOK, code)
}

func TestLogin_UniformFailure(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "a", "email": "a@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)

	wrongCode, wrongBody := e.do(t, http.MethodPost, "/api/auth/login", "",
		creds{"email": "a@example.com", "password": "wrong"})
	missingCode, missingBody := e.do(t, http.MethodPost, "/api/auth/login", "",
		creds{"email": "nosuch@example.com", "password": "x"})

	assert.Equal(t, http.StatusBadRequest, wrongCode)
	assert.Equal(t, wrongCode, missingCode)
	assert.Equal(t, map[string]any{"message": "Invalid credentials"}, wrongBody)
	assert.Equal(t, wrongBody, missingBody)

	for _, body := range []creds{
		{"email": "a@example.com"},
		{"password": "secret1"},
		{},
	} {
		code, got := e.do(t, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, wrongCode, code)
		assert.Equal(t, wrongBody, got)
	}
}

func TestRegister_MessagesUseJSONNames(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "a", "email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "field password is a required field", body["message"])

	code, body = e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "a", "email": "nope", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "field email is not a valid email", body["message"])
}

func TestPasswordByteLimit(t *testing.T) {
	e := newEnv(t)

	// 40 runes, 80 bytes
	long := strings.Repeat("é", 40)

	code, body := e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "a", "email": "a@x.com", "password": long})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Password must be at most 72 bytes", body["message"])

	code, reg := e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "a", "email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)

	code, body = e.do(t, http.MethodPost, "/api/auth/change-password", reg["token"].(string),
		creds{"currentPassword": "secret1", "newPassword": long})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "New password must be at most 72 bytes", body["message"])
}

func TestRegister_BadRequests(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing username", body: creds{"email": "a@x.com", "password": "secret1"}},
		{name: "missing email", body: creds{"username": "a", "password": "secret1"}},
		{name: "invalid email", body: creds{"username": "a", "email": "nope", "password": "secret1"}},
		{name: "missing password", body: creds{"username": "a", "email": "a@x.com"}},
		{name: "empty body", body: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := e.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/api/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "No token, authorization denied", body["message"])

	code, body = e.do(t, http.MethodGet, "/api/auth/user", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token is not valid", body["message"])

	code, _ = e.do(t, http.MethodPost, "/api/auth/change-password", "",
		creds{"currentPassword": "a", "newPassword": "bbbbbb"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodPost, "/api/auth/change-password", "forged",
		creds{"currentPassword": "a", "newPassword": "bbbbbb"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestChangePassword_TooShortAndVanishedAccount(t *testing.T) {
	e := newEnv(t)

	code, reg := e.do(t, http.MethodPost, "/api/auth/register", "",
		creds{"username": "bob", "email": "bob@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	token := reg["token"].(string)

	code, body := e.do(t, http.MethodPost, "/api/auth/change-password", token,
		creds{"currentPassword": "secret1", "newPassword": "12345"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "New password must be at least 6 characters", body["message"])

	e.store.Delete(uuid.MustParse(reg["id"].(string)))

	code, _ = e.do(t, http.MethodPost, "/api/auth/change-password", token,
		creds{"currentPassword": "secret1", "newPassword": "secret2"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodGet, "/api/auth/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCORSAndHealth(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr = httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}
