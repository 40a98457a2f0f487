// Package password hashes and verifies account passwords with bcrypt.
//
// bcrypt hashes embed their own salt and cost ($2a$<cost>$...), so hashes
// produced under an older cost keep verifying after the default changes.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

var (
	ErrEmpty   = errors.New("password is empty")
	ErrTooLong = errors.New("password is longer than 72 bytes")
)

type Hasher struct {
	cost int
}

// New returns a Hasher using cost, clamped to bcrypt's allowed range.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash. Every call draws a fresh salt.
func (h *Hasher) Hash(plain string) ([]byte, error) {
	const op = "password.Hash"

	if plain == "" {
		return nil, ErrEmpty
	}
	if len(plain) > MaxLength {
		return nil, ErrTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

// Verify reports whether plain matches hash. A malformed hash is a mismatch.
func (h *Hasher) Verify(plain string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}

// Cost returns the cost encoded in hash, or 0 when hash is malformed.
func Cost(hash []byte) int {
	cost, err := bcrypt.Cost(hash)
	if err != nil {
		return 0
	}

	return cost
}
