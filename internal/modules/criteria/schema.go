package criteria

import "database/sql"

const criteriaSchema = `
CREATE TABLE IF NOT EXISTS criteria_versions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    target_market TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS criteria (
    id TEXT PRIMARY KEY,
    version_id TEXT NOT NULL REFERENCES criteria_versions(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    metric_key TEXT NOT NULL,
    operator TEXT NOT NULL,
    threshold TEXT,
    threshold_min TEXT,
    threshold_max TEXT,
    points INTEGER NOT NULL,
    position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_criteria_versions_user ON criteria_versions(user_id);
CREATE INDEX IF NOT EXISTS idx_criteria_version ON criteria(version_id);
`

// InitSchema ensures the criteria tables exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(criteriaSchema)
	return err
}
