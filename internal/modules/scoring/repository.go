package scoring

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/database"
)

// Repository handles score persistence. The current score is upserted per
// asset; history rows are append-only.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new scoring repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "scoring").Logger(),
	}
}

// Save stores the asset's current score and appends a history row in one
// transaction so the two can never diverge.
func (r *Repository) Save(score *AssetScore) error {
	results, err := json.Marshal(score.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal criterion results: %w", err)
	}

	return database.WithTx(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO asset_scores (id, user_id, symbol, criteria_version_id, score, max_possible_score, results, correlation_id, calculated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, symbol) DO UPDATE SET
				criteria_version_id = excluded.criteria_version_id,
				score = excluded.score,
				max_possible_score = excluded.max_possible_score,
				results = excluded.results,
				correlation_id = excluded.correlation_id,
				calculated_at = excluded.calculated_at
		`,
			score.ID, score.UserID, score.Symbol, score.CriteriaVersionID,
			score.Score, score.MaxPossibleScore, string(results),
			score.CorrelationID, score.CalculatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert asset score: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO score_history (id, user_id, symbol, criteria_version_id, score, max_possible_score, correlation_id, calculated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			score.ID, score.UserID, score.Symbol, score.CriteriaVersionID,
			score.Score, score.MaxPossibleScore,
			score.CorrelationID, score.CalculatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to append score history: %w", err)
		}

		return nil
	})
}

// GetScore returns the current score for one asset, or nil if never scored
func (r *Repository) GetScore(userID, symbol string) (*AssetScore, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, symbol, criteria_version_id, score, max_possible_score, results, correlation_id, calculated_at
		FROM asset_scores
		WHERE user_id = ? AND symbol = ?
	`, userID, symbol)
	return scanScore(row)
}

// ListScores returns the user's current scores, highest first
func (r *Repository) ListScores(userID string) ([]AssetScore, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, symbol, criteria_version_id, score, max_possible_score, results, correlation_id, calculated_at
		FROM asset_scores
		WHERE user_id = ?
		ORDER BY score DESC, symbol ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset scores: %w", err)
	}
	defer rows.Close()

	var scores []AssetScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}
	return scores, rows.Err()
}

// GetHistory returns history points for an asset since the given time,
// oldest first.
func (r *Repository) GetHistory(userID, symbol string, since time.Time) ([]HistoryPoint, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, criteria_version_id, score, max_possible_score, correlation_id, calculated_at
		FROM score_history
		WHERE user_id = ? AND symbol = ? AND calculated_at >= ?
		ORDER BY calculated_at ASC
	`, userID, symbol, since.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		var calculatedAt string

		if err := rows.Scan(&p.ID, &p.Symbol, &p.CriteriaVersionID, &p.Score, &p.MaxPossibleScore, &p.CorrelationID, &calculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history point: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, calculatedAt); err == nil {
			p.CalculatedAt = t
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScore(row rowScanner) (*AssetScore, error) {
	var s AssetScore
	var results, calculatedAt string

	err := row.Scan(&s.ID, &s.UserID, &s.Symbol, &s.CriteriaVersionID, &s.Score, &s.MaxPossibleScore, &results, &s.CorrelationID, &calculatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset score: %w", err)
	}

	if err := json.Unmarshal([]byte(results), &s.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal criterion results: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, calculatedAt); err == nil {
		s.CalculatedAt = t
	}
	return &s, nil
}
