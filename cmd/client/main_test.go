package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"music_auth/internal/auth"
	httpserver "music_auth/internal/http_server"
	"music_auth/internal/lib/jwt"
	"music_auth/internal/lib/logger/handlers/slogdiscard"
	"music_auth/internal/lib/password"
	"music_auth/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	server string
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()
	store := memory.New()

	tokens, err := jwt.New("cli-test-secret", time.Hour)
	require.NoError(t, err)

	authService := auth.New(log, store, store, password.New(bcrypt.MinCost), tokens, nil, false)

	srv := httptest.NewServer(httpserver.NewRouter(log, authService, httpserver.Options{DisableRateLimit: true}))
	t.Cleanup(srv.Close)

	return &harness{server: srv.URL, dir: t.TempDir()}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--server", h.server, "--session-dir", h.dir}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()

	return out.String(), err
}

func (h *harness) cached(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(h.dir, "userInfo.json"))
	require.NoError(t, err)

	return string(data)
}

func TestClientSession(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "open", "/accountdetails")
	require.NoError(t, err)
	assert.Contains(t, out, "/accountdetails -> /login")

	out, err = h.run(t, "secret1\n", "register", "--username", "alice", "--email", "alice@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")
	assert.NotContains(t, h.cached(t), "secret1")

	out, err = h.run(t, "", "open", "/accountdetails")
	require.NoError(t, err)
	assert.Equal(t, "/accountdetails\n", out)

	out, err = h.run(t, "", "open", "/login")
	require.NoError(t, err)
	assert.Contains(t, out, "/login -> /")

	_, err = h.run(t, "secret1\n", "login", "--email", "alice@x.com")
	assert.ErrorIs(t, err, errAlreadyLoggedIn)

	out, err = h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice <alice@x.com>")

	before := h.cached(t)

	out, err = h.run(t, "secret1\nsecret2\n", "change-password")
	require.NoError(t, err)
	assert.Contains(t, out, "Password updated successfully")
	assert.Equal(t, before, h.cached(t))

	out, err = h.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.NoFileExists(t, filepath.Join(h.dir, "userInfo.json"))

	_, err = h.run(t, "", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, err = h.run(t, "secret1\n", "login", "--email", "alice@x.com")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", describe(err))

	out, err = h.run(t, "secret2\n", "login", "--email", "alice@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")
}

func TestClient_ServerMessagesShownVerbatim(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "secret1\n", "register", "--username", "alice", "--email", "alice@x.com")
	require.NoError(t, err)

	_, err = h.run(t, "secret1\nabc\n", "change-password")
	require.Error(t, err)
	assert.Equal(t, "New password must be at least 6 characters", describe(err))

	_, err = h.run(t, "", "open", "/nowhere")
	assert.Error(t, err)
}

func TestPrompter_ReadsLinesFromPipe(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("first\r\nsecond"), &out)

	a, err := p.secret("A")
	require.NoError(t, err)
	b, err := p.secret("B")
	require.NoError(t, err)

	assert.Equal(t, "first", a)
	assert.Equal(t, "second", b)
	assert.Equal(t, "A: B: ", out.String())
}
