package recommendations

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/database"
	"github.com/aristath/folioplan/pkg/money"
)

// Repository handles recommendation and investment persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new recommendations repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "recommendations").Logger(),
	}
}

// Create stores a new pending recommendation
func (r *Repository) Create(rec *Recommendation) error {
	items, err := encodeItems(rec.Items)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO recommendations (id, user_id, status, contribution, dividends, total_investable, base_currency, items, correlation_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.UserID, rec.Status, rec.Contribution, rec.Dividends,
		rec.TotalInvestable, rec.BaseCurrency,
		items, rec.CorrelationID,
		rec.CreatedAt.Format(time.RFC3339), rec.ExpiresAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}

// GetByID returns a recommendation, or nil if none exists
func (r *Repository) GetByID(id string) (*Recommendation, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, status, contribution, dividends, total_investable, base_currency, items, correlation_id, created_at, expires_at, confirmed_at
		FROM recommendations
		WHERE id = ?
	`, id)
	return scanRecommendation(row)
}

// GetLatestPending returns the user's newest pending recommendation, expired
// or not; expiry is the caller's check.
func (r *Repository) GetLatestPending(userID string) (*Recommendation, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, status, contribution, dividends, total_investable, base_currency, items, correlation_id, created_at, expires_at, confirmed_at
		FROM recommendations
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, StatusPending)
	return scanRecommendation(row)
}

// Confirm marks the recommendation confirmed and records its investments in
// one transaction.
func (r *Repository) Confirm(rec *Recommendation, investments []Investment, confirmedAt time.Time) error {
	return database.WithTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE recommendations
			SET status = ?, confirmed_at = ?
			WHERE id = ? AND status = ?
		`, StatusConfirmed, confirmedAt.Format(time.RFC3339), rec.ID, StatusPending)
		if err != nil {
			return fmt.Errorf("failed to confirm recommendation: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read confirm result: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("recommendation %s is no longer pending", rec.ID)
		}

		for _, inv := range investments {
			_, err := tx.Exec(`
				INSERT INTO investments (id, user_id, recommendation_id, symbol, amount, price, quantity, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				inv.ID, inv.UserID, inv.RecommendationID, inv.Symbol,
				inv.Amount, inv.Price, inv.Quantity,
				inv.CreatedAt.Format(time.RFC3339),
			)
			if err != nil {
				return fmt.Errorf("failed to insert investment: %w", err)
			}

			if err := bumpHoldingQuantity(tx, inv); err != nil {
				return err
			}
		}

		return nil
	})
}

// bumpHoldingQuantity adds the invested quantity to the matching holding.
// Holdings removed since the plan was built are left alone.
func bumpHoldingQuantity(tx *sql.Tx, inv Investment) error {
	var current string
	err := tx.QueryRow(`
		SELECT quantity FROM portfolio_assets WHERE user_id = ? AND symbol = ?
	`, inv.UserID, inv.Symbol).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read holding quantity for %s: %w", inv.Symbol, err)
	}

	held, err := money.Parse(current)
	if err != nil {
		return fmt.Errorf("invalid stored quantity for %s: %w", inv.Symbol, err)
	}
	added, err := money.Parse(inv.Quantity)
	if err != nil {
		return fmt.Errorf("invalid investment quantity for %s: %w", inv.Symbol, err)
	}

	_, err = tx.Exec(`
		UPDATE portfolio_assets SET quantity = ? WHERE user_id = ? AND symbol = ?
	`, held.Add(added).String(), inv.UserID, inv.Symbol)
	if err != nil {
		return fmt.Errorf("failed to update holding quantity for %s: %w", inv.Symbol, err)
	}
	return nil
}

// DeletePendingExcept removes the user's other pending recommendations. Runs
// after a confirm commits so a failed confirm never drops valid cache entries.
func (r *Repository) DeletePendingExcept(userID, keepID string) error {
	_, err := r.db.Exec(`
		DELETE FROM recommendations
		WHERE user_id = ? AND status = ? AND id != ?
	`, userID, StatusPending, keepID)
	if err != nil {
		return fmt.Errorf("failed to invalidate pending recommendations: %w", err)
	}
	return nil
}

// DeleteExpiredPending removes pending recommendations whose TTL passed
// before the cutoff. Returns the number removed.
func (r *Repository) DeleteExpiredPending(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM recommendations
		WHERE status = ? AND expires_at < ?
	`, StatusPending, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired recommendations: %w", err)
	}
	return result.RowsAffected()
}

// ListInvestments returns the user's confirmed investments, newest first
func (r *Repository) ListInvestments(userID string) ([]Investment, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, recommendation_id, symbol, amount, price, quantity, created_at
		FROM investments
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []Investment
	for rows.Next() {
		var inv Investment
		var createdAt string

		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.RecommendationID, &inv.Symbol, &inv.Amount, &inv.Price, &inv.Quantity, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			inv.CreatedAt = t
		}
		investments = append(investments, inv)
	}
	return investments, rows.Err()
}

func scanRecommendation(row *sql.Row) (*Recommendation, error) {
	var rec Recommendation
	var items []byte
	var createdAt, expiresAt string
	var confirmedAt sql.NullString

	err := row.Scan(&rec.ID, &rec.UserID, &rec.Status, &rec.Contribution, &rec.Dividends,
		&rec.TotalInvestable, &rec.BaseCurrency,
		&items, &rec.CorrelationID, &createdAt, &expiresAt, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}

	rec.Items, err = decodeItems(items)
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, expiresAt); err == nil {
		rec.ExpiresAt = t
	}
	if confirmedAt.Valid {
		if t, err := time.Parse(time.RFC3339, confirmedAt.String); err == nil {
			rec.ConfirmedAt = &t
		}
	}

	return &rec, nil
}
