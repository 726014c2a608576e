package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles user database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "users").Logger(),
	}
}

const userColumns = "id, username, email, password_hash, company_name, business_type, created_at"

// Create inserts a user and sets its ID.
// Returns ErrEmailTaken or ErrUsernameTaken on a uniqueness conflict.
func (r *Repository) Create(ctx context.Context, user *User) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, company_name, business_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.Username, user.Email, user.PasswordHash, user.CompanyName, user.BusinessType, user.CreatedAt.Unix())
	if err != nil {
		// Lost a race against a concurrent registration
		msg := err.Error()
		switch {
		case strings.Contains(msg, "users.email"):
			return ErrEmailTaken
		case strings.Contains(msg, "users.username"):
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	user.ID = id

	r.log.Info().Int64("user_id", id).Str("username", user.Username).Msg("User created")
	return nil
}

// GetByID returns a user by id
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail returns a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetByUsername returns a user by username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *Repository) getOne(ctx context.Context, where string, arg interface{}) (*User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg)

	var user User
	var createdAt int64
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.CompanyName, &user.BusinessType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &user, nil
}

// UpdateProfile updates company name and business type
func (r *Repository) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) error {
	return r.updateOne(ctx, "company_name = ?, business_type = ?", id, update.CompanyName, update.BusinessType)
}

// UpdatePasswordHash replaces a user's password hash
func (r *Repository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.updateOne(ctx, "password_hash = ?", id, hash)
}

func (r *Repository) updateOne(ctx context.Context, set string, id int64, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET "+set+" WHERE id = ?", append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
