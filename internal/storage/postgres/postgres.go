package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"music_auth/internal/config"
	"music_auth/internal/models"
	"music_auth/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usernameConstraint = "accounts_username_key"

// PgxPool is the part of *pgxpool.Pool the repository needs.
// pgxmock.PgxPoolIface satisfies it as well.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PostgresRepo struct {
	pool PgxPool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool PgxPool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email, username string, passHash []byte) (models.Account, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO accounts (id, email, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING token_epoch, created_at;
	`

	acc := models.Account{
		ID:       uuid.New(),
		Email:    email,
		Username: username,
		PassHash: passHash,
	}

	err := r.pool.QueryRow(ctx, query, acc.ID, email, username, passHash).Scan(&acc.TokenEpoch, &acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == usernameConstraint {
				return models.Account{}, storage.ErrUsernameTaken
			}

			return models.Account{}, storage.ErrUserExists
		}

		return models.Account{}, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return acc, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.Account, error) {
	query := `
		SELECT id, username, email, password_hash, token_epoch, created_at
		FROM accounts
		WHERE email = $1;
	`

	return r.scanAccount("storage.postgres.User", r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByUsername(ctx context.Context, username string) (models.Account, error) {
	query := `
		SELECT id, username, email, password_hash, token_epoch, created_at
		FROM accounts
		WHERE username = $1;
	`

	return r.scanAccount("storage.postgres.UserByUsername", r.pool.QueryRow(ctx, query, username))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id uuid.UUID) (models.Account, error) {
	query := `
		SELECT id, username, email, password_hash, token_epoch, created_at
		FROM accounts
		WHERE id = $1;
	`

	return r.scanAccount("storage.postgres.UserByID", r.pool.QueryRow(ctx, query, id))
}

// UpdatePassHash replaces the password hash and bumps the token epoch.
func (r *PostgresRepo) UpdatePassHash(ctx context.Context, id uuid.UUID, passHash []byte) error {
	const op = "storage.postgres.UpdatePassHash"

	query := `
		UPDATE accounts
		SET password_hash = $1, token_epoch = token_epoch + 1
		WHERE id = $2;
	`

	tag, err := r.pool.Exec(ctx, query, passHash, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) scanAccount(op string, row pgx.Row) (models.Account, error) {
	var a models.Account

	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PassHash,
		&a.TokenEpoch,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrUserNotFound
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// DSN builds the connection string for the pool and for migrations.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
