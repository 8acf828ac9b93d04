package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles user persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "users").Logger(),
	}
}

// Create inserts a new user
func (r *Repository) Create(user *User) error {
	_, err := r.db.Exec(`
		INSERT INTO users (id, email, password_hash, base_currency, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.BaseCurrency,
		user.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByEmail returns the user with the given email, or nil if none exists
func (r *Repository) GetByEmail(email string) (*User, error) {
	return r.getOne("SELECT id, email, password_hash, base_currency, is_active, created_at, deactivated_at FROM users WHERE email = ?", email)
}

// GetByID returns the user with the given id, or nil if none exists
func (r *Repository) GetByID(id string) (*User, error) {
	return r.getOne("SELECT id, email, password_hash, base_currency, is_active, created_at, deactivated_at FROM users WHERE id = ?", id)
}

func (r *Repository) getOne(query string, arg interface{}) (*User, error) {
	var user User
	var isActive int
	var createdAt string
	var deactivatedAt sql.NullString

	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.BaseCurrency,
		&isActive,
		&createdAt,
		&deactivatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.IsActive = isActive == 1
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		user.CreatedAt = t
	}
	if deactivatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, deactivatedAt.String); err == nil {
			user.DeactivatedAt = &t
		}
	}

	return &user, nil
}

// Deactivate soft-deletes a user account
func (r *Repository) Deactivate(id string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := r.db.Exec("UPDATE users SET is_active = 0, deactivated_at = ? WHERE id = ?", now, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

// PurgeDeactivatedBefore hard-deletes accounts deactivated before the cutoff.
// Used by the scheduled purge job.
func (r *Repository) PurgeDeactivatedBefore(cutoff time.Time) (int, error) {
	res, err := r.db.Exec(
		"DELETE FROM users WHERE is_active = 0 AND deactivated_at IS NOT NULL AND deactivated_at < ?",
		cutoff.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge users: %w", err)
	}

	count, _ := res.RowsAffected()
	if count > 0 {
		r.log.Info().Int64("count", count).Msg("Purged deactivated accounts")
	}
	return int(count), nil
}
