package criteria

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/database"
	"github.com/aristath/folioplan/pkg/money"
)

// Repository handles criteria version persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new criteria repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "criteria").Logger(),
	}
}

// CreateVersion inserts a version and its criteria in one transaction
func (r *Repository) CreateVersion(v *Version) error {
	return database.WithTx(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO criteria_versions (id, user_id, name, target_market, is_active, created_at)
			VALUES (?, ?, ?, ?, 1, ?)
		`,
			v.ID,
			v.UserID,
			v.Name,
			v.TargetMarket,
			v.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert criteria version: %w", err)
		}

		for i, c := range v.Criteria {
			_, err := tx.Exec(`
				INSERT INTO criteria (id, version_id, name, metric_key, operator, threshold, threshold_min, threshold_max, points, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				c.ID,
				v.ID,
				c.Name,
				c.MetricKey,
				string(c.Operator),
				amountString(c.Threshold),
				amountString(c.ThresholdMin),
				amountString(c.ThresholdMax),
				c.Points,
				i,
			)
			if err != nil {
				return fmt.Errorf("failed to insert criterion: %w", err)
			}
		}

		return nil
	})
}

// GetVersion returns a version with its criteria, or nil if none exists
func (r *Repository) GetVersion(id string) (*Version, error) {
	var v Version
	var isActive int
	var createdAt string

	err := r.db.QueryRow(`
		SELECT id, user_id, name, target_market, is_active, created_at
		FROM criteria_versions
		WHERE id = ?
	`, id).Scan(&v.ID, &v.UserID, &v.Name, &v.TargetMarket, &isActive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria version: %w", err)
	}

	v.IsActive = isActive == 1
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		v.CreatedAt = t
	}

	criteria, err := r.loadCriteria(v.ID)
	if err != nil {
		return nil, err
	}
	v.Criteria = criteria

	return &v, nil
}

// GetActiveVersion returns the user's most recent active version, optionally
// filtered by target market. Nil when none exists.
func (r *Repository) GetActiveVersion(userID, targetMarket string) (*Version, error) {
	query := `
		SELECT id FROM criteria_versions
		WHERE user_id = ? AND is_active = 1
	`
	args := []interface{}{userID}

	if targetMarket != "" {
		query += " AND target_market = ?"
		args = append(args, targetMarket)
	}
	query += " ORDER BY created_at DESC LIMIT 1"

	var id string
	err := r.db.QueryRow(query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active version: %w", err)
	}

	return r.GetVersion(id)
}

// ListVersions returns all of a user's versions, newest first, without
// loading criteria rows.
func (r *Repository) ListVersions(userID string) ([]Version, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, target_market, is_active, created_at
		FROM criteria_versions
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		var isActive int
		var createdAt string

		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.TargetMarket, &isActive, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan criteria version: %w", err)
		}
		v.IsActive = isActive == 1
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			v.CreatedAt = t
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}

// CountVersions returns how many versions a user owns
func (r *Repository) CountVersions(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM criteria_versions WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count criteria versions: %w", err)
	}
	return count, nil
}

// HasHistory reports whether any score history row references the version
func (r *Repository) HasHistory(versionID string) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM score_history WHERE criteria_version_id = ?", versionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check score history: %w", err)
	}
	return count > 0, nil
}

// Deactivate soft-deletes a version
func (r *Repository) Deactivate(id string) error {
	_, err := r.db.Exec("UPDATE criteria_versions SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate criteria version: %w", err)
	}
	return nil
}

// Delete hard-deletes an unreferenced version. The RESTRICT foreign key from
// score_history rejects this once scores reference it.
func (r *Repository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM criteria_versions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete criteria version: %w", err)
	}
	return nil
}

func (r *Repository) loadCriteria(versionID string) ([]Criterion, error) {
	rows, err := r.db.Query(`
		SELECT id, name, metric_key, operator, threshold, threshold_min, threshold_max, points
		FROM criteria
		WHERE version_id = ?
		ORDER BY position ASC
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria: %w", err)
	}
	defer rows.Close()

	var criteria []Criterion
	for rows.Next() {
		var c Criterion
		var operator string
		var threshold, thresholdMin, thresholdMax sql.NullString

		if err := rows.Scan(&c.ID, &c.Name, &c.MetricKey, &operator, &threshold, &thresholdMin, &thresholdMax, &c.Points); err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}

		c.Operator = Operator(operator)
		c.Threshold, err = parseAmount(threshold)
		if err != nil {
			return nil, err
		}
		c.ThresholdMin, err = parseAmount(thresholdMin)
		if err != nil {
			return nil, err
		}
		c.ThresholdMax, err = parseAmount(thresholdMax)
		if err != nil {
			return nil, err
		}

		criteria = append(criteria, c)
	}

	return criteria, rows.Err()
}

func amountString(a *money.Amount) interface{} {
	if a == nil {
		return nil
	}
	return a.String()
}

func parseAmount(s sql.NullString) (*money.Amount, error) {
	if !s.Valid {
		return nil, nil
	}
	a, err := money.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("stored threshold is not a decimal: %w", err)
	}
	return &a, nil
}
