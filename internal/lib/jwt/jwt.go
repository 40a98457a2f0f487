// Package jwt issues and verifies the HS256 session tokens handed to clients.
// Tokens are stateless: nothing is stored server-side and expiry is the only
// way a token stops verifying, unless the caller also checks the epoch claim.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrEmptySecret  = errors.New("token secret is empty")
)

type Claims struct {
	jwt.RegisteredClaims
	Epoch int64 `json:"epoch"`
}

// Identity is what a verified token asserts.
type Identity struct {
	AccountID uuid.UUID
	Epoch     int64
	ExpiresAt time.Time
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and verifying.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// NewToken signs a token for accountID carrying the account's current epoch.
func (m *Manager) NewToken(accountID uuid.UUID, epoch int64) (string, error) {
	const op = "jwt.NewToken"

	now := m.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		Epoch: epoch,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Parse verifies signature, structure and expiry. It has no side effects.
func (m *Manager) Parse(tokenStr string) (Identity, error) {
	const op = "jwt.Parse"

	var claims Claims

	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}

		return Identity{}, fmt.Errorf("%s: %w: %w", op, ErrTokenInvalid, err)
	}

	if !token.Valid {
		return Identity{}, ErrTokenInvalid
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w: bad subject", op, ErrTokenInvalid)
	}

	return Identity{
		AccountID: accountID,
		Epoch:     claims.Epoch,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
