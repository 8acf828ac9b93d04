package portfolio

import "database/sql"

const portfolioSchema = `
CREATE TABLE IF NOT EXISTS asset_classes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    target_min TEXT NOT NULL,
    target_max TEXT NOT NULL,
    max_assets INTEGER NOT NULL DEFAULT 0,
    min_allocation_value TEXT NOT NULL DEFAULT '0',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolio_assets (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    symbol TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    asset_class_id TEXT REFERENCES asset_classes(id) ON DELETE SET NULL,
    quantity TEXT NOT NULL,
    currency TEXT NOT NULL,
    last_price TEXT,
    price_currency TEXT NOT NULL DEFAULT '',
    price_date TEXT,
    is_ignored INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    UNIQUE (user_id, symbol)
);

CREATE INDEX IF NOT EXISTS idx_portfolio_assets_user ON portfolio_assets(user_id);
CREATE INDEX IF NOT EXISTS idx_asset_classes_user ON asset_classes(user_id);
`

// InitSchema ensures the portfolio tables exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(portfolioSchema)
	return err
}
