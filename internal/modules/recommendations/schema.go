package recommendations

import "database/sql"

// items holds the msgpack-encoded item list; it is opaque to SQL.
const recommendationsSchema = `
CREATE TABLE IF NOT EXISTS recommendations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'pending',
    contribution TEXT NOT NULL DEFAULT '0',
    dividends TEXT NOT NULL DEFAULT '0',
    total_investable TEXT NOT NULL,
    base_currency TEXT NOT NULL,
    items BLOB NOT NULL,
    correlation_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    confirmed_at TEXT
);

CREATE TABLE IF NOT EXISTS investments (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    recommendation_id TEXT NOT NULL REFERENCES recommendations(id) ON DELETE CASCADE,
    symbol TEXT NOT NULL,
    amount TEXT NOT NULL,
    price TEXT NOT NULL,
    quantity TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations(user_id, status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id);
`

// InitSchema ensures the recommendation tables exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(recommendationsSchema)
	return err
}
