package rates

import "database/sql"

const ratesSchema = `
CREATE TABLE IF NOT EXISTS exchange_rates (
    from_currency TEXT NOT NULL,
    to_currency TEXT NOT NULL,
    rate TEXT NOT NULL,
    rate_date TEXT NOT NULL,
    source TEXT NOT NULL,
    fetched_at TEXT NOT NULL,
    PRIMARY KEY (from_currency, to_currency, rate_date)
);

CREATE TABLE IF NOT EXISTS conversion_log (
    id TEXT PRIMARY KEY,
    correlation_id TEXT NOT NULL DEFAULT '',
    from_currency TEXT NOT NULL,
    to_currency TEXT NOT NULL,
    amount TEXT NOT NULL,
    rate TEXT NOT NULL,
    converted TEXT NOT NULL,
    rate_date TEXT NOT NULL,
    rate_source TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchange_rates_pair ON exchange_rates(from_currency, to_currency, rate_date DESC);
CREATE INDEX IF NOT EXISTS idx_conversion_log_correlation ON conversion_log(correlation_id);
`

// InitSchema ensures the exchange rate tables exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(ratesSchema)
	return err
}
