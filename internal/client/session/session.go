// Package session holds the client's view of who is signed in.
//
// The state is advisory: it decides which pages the client offers, while the
// server re-verifies the token on every protected request.
package session

import (
	"errors"
	"fmt"
	"sync"

	"music_auth/internal/models"
)

var ErrEmptyToken = errors.New("session token is empty")

// State is either LoggedOut or LoggedIn.
type State interface {
	isState()
}

type LoggedOut struct{}

type LoggedIn struct {
	Profile models.PublicAccount
	Token   string
}

func (LoggedOut) isState() {}
func (LoggedIn) isState() {}

// Manager owns the session state and keeps the cache in step with it.
type Manager struct {
	cache Cache

	mu    sync.RWMutex
	state State
}

func NewManager(cache Cache) *Manager {
	return &Manager{
		cache: cache,
		state: LoggedOut{},
	}
}

// Load restores the state from the cache. A missing or unreadable record
// leaves the client logged out.
func (m *Manager) Load() error {
	const op = "session.Load"

	rec, err := m.cache.Load()
	if err != nil {
		if errors.Is(err, ErrNoRecord) || errors.Is(err, ErrCorruptRecord) {
			m.set(LoggedOut{})
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if rec.Token == "" {
		m.set(LoggedOut{})
		return nil
	}

	m.set(LoggedIn{Profile: rec.Profile, Token: rec.Token})

	return nil
}

// SignIn records the session returned by a successful register or login.
func (m *Manager) SignIn(s models.Session) error {
	const op = "session.SignIn"

	if s.Token == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}

	if err := m.cache.Save(Record{Profile: s.PublicAccount, Token: s.Token}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.set(LoggedIn{Profile: s.PublicAccount, Token: s.Token})

	return nil
}

// Logout clears the cached record entirely. The in-memory state is reset
// even when the cache cannot be cleared.
func (m *Manager) Logout() error {
	const op = "session.Logout"

	m.set(LoggedOut{})

	if err := m.cache.Clear(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Manager) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	in, ok := m.Current().(LoggedIn)
	return ok && in.Token != ""
}

// Token returns the cached token, if any.
func (m *Manager) Token() (string, bool) {
	in, ok := m.Current().(LoggedIn)
	if !ok || in.Token == "" {
		return "", false
	}

	return in.Token, true
}

func (m *Manager) set(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
