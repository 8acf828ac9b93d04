package fundamentals

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles fundamentals snapshot persistence. Metrics are stored as
// a JSON object so new provider metrics need no schema change.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new fundamentals repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "fundamentals").Logger(),
	}
}

// Upsert stores or replaces the snapshot for a symbol
func (r *Repository) Upsert(s *Snapshot) error {
	metrics, err := json.Marshal(s.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO fundamentals_snapshots (symbol, metrics, source, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			metrics = excluded.metrics,
			source = excluded.source,
			fetched_at = excluded.fetched_at
	`,
		s.Symbol,
		string(metrics),
		s.Source,
		s.FetchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fundamentals snapshot: %w", err)
	}
	return nil
}

// GetBySymbol returns the stored snapshot for a symbol, or nil if none exists
func (r *Repository) GetBySymbol(symbol string) (*Snapshot, error) {
	var s Snapshot
	var metrics, fetchedAt string

	err := r.db.QueryRow(`
		SELECT symbol, metrics, source, fetched_at
		FROM fundamentals_snapshots
		WHERE symbol = ?
	`, symbol).Scan(&s.Symbol, &metrics, &s.Source, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fundamentals snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(metrics), &s.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
		s.FetchedAt = t
	}

	return &s, nil
}

// ListSymbols returns every symbol with a stored snapshot
func (r *Repository) ListSymbols() ([]string, error) {
	rows, err := r.db.Query("SELECT symbol FROM fundamentals_snapshots ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	return symbols, rows.Err()
}
