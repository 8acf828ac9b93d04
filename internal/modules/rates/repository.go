package rates

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Repository handles exchange rate persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new rates repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "rates").Logger(),
	}
}

// Upsert stores or replaces a rate for a pair and date
func (r *Repository) Upsert(rate *Rate) error {
	_, err := r.db.Exec(`
		INSERT INTO exchange_rates (from_currency, to_currency, rate, rate_date, source, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_currency, to_currency, rate_date) DO UPDATE SET
			rate = excluded.rate,
			source = excluded.source,
			fetched_at = excluded.fetched_at
	`,
		rate.FromCurrency,
		rate.ToCurrency,
		rate.Rate,
		rate.RateDate.Format(dateLayout),
		rate.Source,
		rate.FetchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}
	return nil
}

// GetRate returns the most recent rate for the pair at or before the given
// date, or nil if none is stored.
func (r *Repository) GetRate(from, to string, asOf time.Time) (*Rate, error) {
	var rate Rate
	var rateDate, fetchedAt string

	err := r.db.QueryRow(`
		SELECT from_currency, to_currency, rate, rate_date, source, fetched_at
		FROM exchange_rates
		WHERE from_currency = ? AND to_currency = ? AND rate_date <= ?
		ORDER BY rate_date DESC
		LIMIT 1
	`, from, to, asOf.Format(dateLayout)).Scan(
		&rate.FromCurrency, &rate.ToCurrency, &rate.Rate, &rateDate, &rate.Source, &fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rate: %w", err)
	}

	if t, err := time.Parse(dateLayout, rateDate); err == nil {
		rate.RateDate = t
	}
	if t, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
		rate.FetchedAt = t
	}

	return &rate, nil
}

// ListPairs returns the distinct currency pairs with stored rates
func (r *Repository) ListPairs() ([][2]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT from_currency, to_currency FROM exchange_rates")
	if err != nil {
		return nil, fmt.Errorf("failed to query rate pairs: %w", err)
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan rate pair: %w", err)
		}
		pairs = append(pairs, [2]string{from, to})
	}

	return pairs, rows.Err()
}

// LogConversion records one performed conversion for auditability
func (r *Repository) LogConversion(correlationID string, c *Conversion) error {
	_, err := r.db.Exec(`
		INSERT INTO conversion_log (id, correlation_id, from_currency, to_currency, amount, rate, converted, rate_date, rate_source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.New().String(),
		correlationID,
		c.FromCurrency,
		c.ToCurrency,
		c.Amount,
		c.Rate,
		c.Converted,
		c.RateDate.Format(dateLayout),
		c.RateSource,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to log conversion: %w", err)
	}
	return nil
}
