package fundamentals

import "database/sql"

const fundamentalsSchema = `
CREATE TABLE IF NOT EXISTS fundamentals_snapshots (
    symbol TEXT PRIMARY KEY,
    metrics TEXT NOT NULL,
    source TEXT NOT NULL,
    fetched_at TEXT NOT NULL
);
`

// InitSchema ensures the fundamentals tables exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(fundamentalsSchema)
	return err
}
