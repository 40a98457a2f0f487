package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered user. PassHash never leaves the service layer.
type Account struct {
	ID         uuid.UUID
	Username   string
	Email      string
	PassHash   []byte
	TokenEpoch int64
	CreatedAt  time.Time
}

// Public strips the credential fields from the account.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
}

type PublicAccount struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	PurposeAccountRegistered = "account_registered"
	PurposePasswordChanged   = "password_changed"
)

// Message is the notification published for the mail sender.
type Message struct {
	Email    string    `json:"to"`
	Username string    `json:"username"`
	Purpose  string    `json:"purpose"`
	SentAt   time.Time `json:"sent_at"`
}

// Session is returned by register and login: the public profile plus a
// freshly issued session token, as flat fields.
type Session struct {
	PublicAccount
	Token string `json:"token"`
}
