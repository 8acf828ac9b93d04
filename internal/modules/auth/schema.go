package auth

import "database/sql"

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    base_currency TEXT NOT NULL DEFAULT 'EUR',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    deactivated_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

// InitSchema ensures the users table exists
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(usersSchema)
	return err
}
