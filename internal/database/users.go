package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/whizardlm/whizard-api/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user on first verified login or refreshes email/name
// on subsequent logins, stamping last_login either way.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, email_verified, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			email_verified = EXCLUDED.email_verified,
			last_login = EXCLUDED.last_login
		RETURNING created_at, last_login
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.EmailVerified,
		now,
	).Scan(&user.CreatedAt, &user.LastLogin)

	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their provider-assigned id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	query := `
		SELECT id, email, name, email_verified, created_at, last_login
		FROM users
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.EmailVerified,
		&user.CreatedAt,
		&lastLogin,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	query := `
		SELECT id, email, name, email_verified, created_at, last_login
		FROM users
		WHERE email = $1
	`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.EmailVerified,
		&user.CreatedAt,
		&lastLogin,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user by email: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}
