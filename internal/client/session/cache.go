package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"music_auth/internal/models"
)

// CacheKey is the well-known name of the cached credential record.
const CacheKey = "userInfo"

var (
	ErrNoRecord      = errors.New("no cached session")
	ErrCorruptRecord = errors.New("cached session is corrupt")
)

// Record is what gets persisted: the public profile and the token, never a
// password.
type Record struct {
	Profile models.PublicAccount `json:"profile"`
	Token   string               `json:"token"`
}

type Cache interface {
	Load() (Record, error)
	Save(rec Record) error
	Clear() error
}

// FileCache keeps the record as <dir>/userInfo.json.
type FileCache struct {
	path string
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{path: filepath.Join(dir, CacheKey+".json")}
}

// DefaultDir is the per-user config directory for the client.
func DefaultDir() (string, error) {
	const op = "session.DefaultDir"

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return filepath.Join(base, "music_auth"), nil
}

func (c *FileCache) Path() string {
	return c.path
}

func (c *FileCache) Load() (Record, error) {
	const op = "session.FileCache.Load"

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrNoRecord
		}

		return Record{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(data) == 0 {
		return Record{}, ErrNoRecord
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%s: %w: %w", op, ErrCorruptRecord, err)
	}

	return rec, nil
}

// Save replaces the record atomically.
func (c *FileCache) Save(rec Record) error {
	const op = "session.FileCache.Save"

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(dir, CacheKey+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Clear removes the record. Clearing an absent record is not an error.
func (c *FileCache) Clear() error {
	const op = "session.FileCache.Clear"

	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
