package scoring

import "database/sql"

// score_history is append-only and pins its criteria version: versions with
// history can only be soft-deleted, which RESTRICT enforces at the database
// level.
const scoringSchema = `
CREATE TABLE IF NOT EXISTS asset_scores (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    symbol TEXT NOT NULL,
    criteria_version_id TEXT NOT NULL REFERENCES criteria_versions(id) ON DELETE RESTRICT,
    score INTEGER NOT NULL,
    max_possible_score INTEGER NOT NULL,
    results TEXT NOT NULL,
    correlation_id TEXT NOT NULL DEFAULT '',
    calculated_at TEXT NOT NULL,
    UNIQUE (user_id, symbol)
);

CREATE TABLE IF NOT EXISTS score_history (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    symbol TEXT NOT NULL,
    criteria_version_id TEXT NOT NULL REFERENCES criteria_versions(id) ON DELETE RESTRICT,
    score INTEGER NOT NULL,
    max_possible_score INTEGER NOT NULL,
    correlation_id TEXT NOT NULL DEFAULT '',
    calculated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_asset_scores_user ON asset_scores(user_id);
CREATE INDEX IF NOT EXISTS idx_score_history_asset ON score_history(user_id, symbol, calculated_at);
CREATE INDEX IF NOT EXISTS idx_score_history_version ON score_history(criteria_version_id);
`

// InitSchema ensures the scoring tables exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(scoringSchema)
	return err
}
