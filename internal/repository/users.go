package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
)

// pgUniqueViolation is the SQLSTATE for a duplicate key.
const pgUniqueViolation = "23505"

// Credentials pairs a user with the stored password hash.
type Credentials struct {
	User         model.User
	PasswordHash string
}

// UserRepository handles persistence for accounts.
type UserRepository struct {
	db DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new account. A duplicate email yields model.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	u := model.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, passwordHash, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, model.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

// GetByEmail returns the account and its hash, or model.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*Credentials, error) {
	var c Credentials
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, created_at, password_hash FROM users WHERE email = $1`, email,
	).Scan(&c.User.ID, &c.User.Name, &c.User.Email, &c.User.CreatedAt, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &c, nil
}

// SessionRepository stores opaque session tokens.
type SessionRepository struct {
	db DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create issues a token for userID valid for ttl.
func (r *SessionRepository) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		token, userID, now, now.Add(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return token, nil
}

// UserForToken resolves an unexpired token to its user, or
// model.ErrUnauthenticated.
func (r *SessionRepository) UserForToken(ctx context.Context, token string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT u.id, u.name, u.email, u.created_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token = $1 AND s.expires_at > NOW()`, token,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return &u, nil
}

// Delete revokes a token. Unknown tokens are not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges stale sessions and returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
