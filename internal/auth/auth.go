package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"music_auth/internal/lib/jwt"
	sl "music_auth/internal/lib/logger/sl"
	"music_auth/internal/lib/password"
	"music_auth/internal/models"
	"music_auth/internal/storage"

	"github.com/google/uuid"
)

const MinPasswordLength = 6

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAccountNotFound    = errors.New("account not found")
	ErrPasswordTooShort   = fmt.Errorf("%w: new password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, password.MaxLength)
)

type Auth struct {
	log                    *slog.Logger
	usrSaver               UserSaver
	usrProvider            UserProvider
	hasher                 PasswordHasher
	tokens                 TokenManager
	notifier               Notifier
	revokeOnPasswordChange bool

	// dummyHash is compared against when the email is unknown so that a
	// missing account costs the same bcrypt work as a wrong password.
	dummyHash []byte
}

type UserSaver interface {
	SaveUser(ctx context.Context, email string, username string, passHash []byte) (models.Account, error)
	UpdatePassHash(ctx context.Context, id uuid.UUID, passHash []byte) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.Account, error)
	UserByUsername(ctx context.Context, username string) (models.Account, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.Account, error)
}

type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
	Verify(plain string, hash []byte) bool
}

type TokenManager interface {
	NewToken(accountID uuid.UUID, epoch int64) (string, error)
	Parse(token string) (jwt.Identity, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	hasher PasswordHasher,
	tokens TokenManager,
	notifier Notifier,
	revokeOnPasswordChange bool,
) *Auth {
	if notifier == nil {
		notifier = nopNotifier{}
	}

	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		log.Warn("failed to prepare dummy hash", sl.Err(err))
	}

	return &Auth{
		log:                    log,
		usrSaver:               userSaver,
		usrProvider:            userProvider,
		hasher:                 hasher,
		tokens:                 tokens,
		notifier:               notifier,
		revokeOnPasswordChange: revokeOnPasswordChange,
		dummyHash:              dummy,
	}
}

// Register creates an account and signs the new user in.
func (a *Auth) Register(
	ctx context.Context,
	username string,
	email string,
	pass string,
) (models.Session, error) {
	const op = "auth.Register"

	log := a.log.With(
		slog.String("op", op),
	)

	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)

	if username == "" || email == "" || pass == "" {
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	log.Info("registering new user")

	if _, err := a.usrProvider.User(ctx, email); err == nil {
		log.Warn("email already registered")
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrUserExists)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to look up email", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := a.usrProvider.UserByUsername(ctx, username); err == nil {
		log.Warn("username already taken")
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to look up username", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrTooLong):
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
		case errors.Is(err, password.ErrEmpty):
			return models.Session{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
		}

		log.Error("failed to generate password hash", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	// The lookups above only pick the message; the store's unique keys decide.
	acc, err := a.usrSaver.SaveUser(ctx, email, username, passHash)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserExists):
			log.Warn("user already exists")
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		case errors.Is(err, storage.ErrUsernameTaken):
			log.Warn("username already taken")
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		}

		log.Error("failed to save user", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.tokens.NewToken(acc.ID, acc.TokenEpoch)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	a.notify(ctx, log, acc, models.PurposeAccountRegistered)

	log.Info("user registered", slog.String("uid", acc.ID.String()))

	return models.Session{PublicAccount: acc.Public(), Token: token}, nil
}

// Login checks the email/password pair. Unknown email and wrong password
// both come back as ErrInvalidCredentials.
func (a *Auth) Login(
	ctx context.Context,
	email string,
	pass string,
) (models.Session, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	email = NormalizeEmail(email)

	acc, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			a.hasher.Verify(pass, a.dummyHash)
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to get user", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(pass, acc.PassHash) {
		log.Info("invalid credentials", slog.String("uid", acc.ID.String()))
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := a.tokens.NewToken(acc.ID, acc.TokenEpoch)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", acc.ID.String()))

	return models.Session{PublicAccount: acc.Public(), Token: token}, nil
}

// ChangePassword rotates the password of an account whose token the caller
// has already verified. No token is issued; existing tokens stay valid
// unless revocation on password change is enabled.
func (a *Auth) ChangePassword(
	ctx context.Context,
	accountID uuid.UUID,
	currentPass string,
	newPass string,
) error {
	const op = "auth.ChangePassword"

	log := a.log.With(
		slog.String("op", op),
		slog.String("uid", accountID.String()),
	)

	acc, err := a.usrProvider.UserByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("account not found")
			return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(currentPass, acc.PassHash) {
		log.Info("current password mismatch")
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if utf8.RuneCountInString(newPass) < MinPasswordLength {
		return fmt.Errorf("%s: %w", op, ErrPasswordTooShort)
	}

	passHash, err := a.hasher.Hash(newPass)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
		}

		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.UpdatePassHash(ctx, acc.ID, passHash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("account vanished during password change")
			return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		log.Error("failed to update password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.notify(ctx, log, acc, models.PurposePasswordChanged)

	log.Info("password changed")

	return nil
}

// Authenticate verifies a bearer token and returns the account it asserts.
func (a *Auth) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "auth.Authenticate"

	id, err := a.tokens.Parse(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	if !a.revokeOnPasswordChange {
		return id.AccountID, nil
	}

	if _, err := a.currentAccount(ctx, op, id); err != nil {
		return uuid.Nil, err
	}

	return id.AccountID, nil
}

// WhoAmI returns the public profile of the token's account.
func (a *Auth) WhoAmI(ctx context.Context, token string) (models.PublicAccount, error) {
	const op = "auth.WhoAmI"

	id, err := a.tokens.Parse(token)
	if err != nil {
		return models.PublicAccount{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	acc, err := a.currentAccount(ctx, op, id)
	if err != nil {
		return models.PublicAccount{}, err
	}

	return acc.Public(), nil
}

func (a *Auth) currentAccount(ctx context.Context, op string, id jwt.Identity) (models.Account, error) {
	acc, err := a.usrProvider.UserByID(ctx, id.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.Account{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, ErrAccountNotFound)
		}

		a.log.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if a.revokeOnPasswordChange && acc.TokenEpoch != id.Epoch {
		return models.Account{}, fmt.Errorf("%s: %w: token predates password change", op, ErrUnauthorized)
	}

	return acc, nil
}

// notify is best-effort: a failed publish never fails the request.
func (a *Auth) notify(ctx context.Context, log *slog.Logger, acc models.Account, purpose string) {
	msg := models.Message{
		Email:    acc.Email,
		Username: acc.Username,
		Purpose:  purpose,
		SentAt:   time.Now().UTC(),
	}

	if err := a.notifier.SendMessage(ctx, msg); err != nil {
		log.Warn("failed to publish notification", slog.String("purpose", purpose), sl.Err(err))
	}
}

// NormalizeEmail trims and lowercases an address; emails are compared that way.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type nopNotifier struct{}

func (nopNotifier) SendMessage(context.Context, models.Message) error { return nil }
