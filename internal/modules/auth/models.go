package auth

import "time"

// User represents a registered account. Accounts are deactivated rather than
// deleted; a scheduled job purges deactivated accounts after a grace period.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	BaseCurrency  string     `json:"base_currency"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}
