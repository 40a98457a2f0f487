// Package memory is an in-process credential store for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"music_auth/internal/models"
	"music_auth/internal/storage"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]models.Account
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID
}

func New() *MemoryRepo {
	return &MemoryRepo{
		byID:       make(map[uuid.UUID]models.Account),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
	}
}

// SaveUser checks both unique keys and inserts under one lock.
func (r *MemoryRepo) SaveUser(_ context.Context, email, username string, passHash []byte) (models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return models.Account{}, storage.ErrUserExists
	}
	if _, ok := r.byUsername[username]; ok {
		return models.Account{}, storage.ErrUsernameTaken
	}

	acc := models.Account{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		PassHash:  append([]byte(nil), passHash...),
		CreatedAt: time.Now().UTC(),
	}

	r.byID[acc.ID] = acc
	r.byEmail[email] = acc.ID
	r.byUsername[username] = acc.ID

	return acc, nil
}

func (r *MemoryRepo) User(_ context.Context, email string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return models.Account{}, storage.ErrUserNotFound
	}

	return r.byID[id], nil
}

func (r *MemoryRepo) UserByUsername(_ context.Context, username string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return models.Account{}, storage.ErrUserNotFound
	}

	return r.byID[id], nil
}

func (r *MemoryRepo) UserByID(_ context.Context, id uuid.UUID) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.byID[id]
	if !ok {
		return models.Account{}, storage.ErrUserNotFound
	}

	return acc, nil
}

// UpdatePassHash replaces the password hash and bumps the token epoch.
func (r *MemoryRepo) UpdatePassHash(_ context.Context, id uuid.UUID, passHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	acc.PassHash = append([]byte(nil), passHash...)
	acc.TokenEpoch++
	r.byID[id] = acc

	return nil
}

// Delete removes an account. Only used to simulate an account vanishing.
func (r *MemoryRepo) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[id]
	if !ok {
		return
	}

	delete(r.byID, id)
	delete(r.byEmail, acc.Email)
	delete(r.byUsername, acc.Username)
}
