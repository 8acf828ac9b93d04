package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles portfolio asset and asset class persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// CreateClass inserts a new asset class
func (r *Repository) CreateClass(c *AssetClass) error {
	_, err := r.db.Exec(`
		INSERT INTO asset_classes (id, user_id, name, target_min, target_max, max_assets, min_allocation_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.UserID, c.Name, c.TargetMin, c.TargetMax, c.MaxAssets, c.MinAllocationValue,
		c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset class: %w", err)
	}
	return nil
}

// GetClass returns an asset class by id, or nil if none exists
func (r *Repository) GetClass(id string) (*AssetClass, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, name, target_min, target_max, max_assets, min_allocation_value, created_at
		FROM asset_classes WHERE id = ?
	`, id)
	return scanClass(row)
}

// ListClasses returns a user's asset classes
func (r *Repository) ListClasses(userID string) ([]AssetClass, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, target_min, target_max, max_assets, min_allocation_value, created_at
		FROM asset_classes WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset classes: %w", err)
	}
	defer rows.Close()

	var classes []AssetClass
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// DeleteClass removes an asset class; assets referencing it fall back to
// unclassified via ON DELETE SET NULL.
func (r *Repository) DeleteClass(id string) error {
	_, err := r.db.Exec("DELETE FROM asset_classes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete asset class: %w", err)
	}
	return nil
}

// CreateAsset inserts a new holding
func (r *Repository) CreateAsset(a *Asset) error {
	_, err := r.db.Exec(`
		INSERT INTO portfolio_assets (id, user_id, symbol, name, asset_class_id, quantity, currency, last_price, price_currency, price_date, is_ignored, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.UserID, a.Symbol, a.Name, a.AssetClassID, a.Quantity, a.Currency,
		a.LastPrice, a.PriceCurrency, timePtrString(a.PriceDate), boolInt(a.IsIgnored),
		a.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// GetAsset returns a holding by id, or nil if none exists
func (r *Repository) GetAsset(id string) (*Asset, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, symbol, name, asset_class_id, quantity, currency, last_price, price_currency, price_date, is_ignored, created_at
		FROM portfolio_assets WHERE id = ?
	`, id)
	return scanAsset(row)
}

// GetAssetBySymbol returns a user's holding for a symbol, or nil
func (r *Repository) GetAssetBySymbol(userID, symbol string) (*Asset, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, symbol, name, asset_class_id, quantity, currency, last_price, price_currency, price_date, is_ignored, created_at
		FROM portfolio_assets WHERE user_id = ? AND symbol = ?
	`, userID, symbol)
	return scanAsset(row)
}

// ListAssets returns all of a user's holdings
func (r *Repository) ListAssets(userID string) ([]Asset, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, symbol, name, asset_class_id, quantity, currency, last_price, price_currency, price_date, is_ignored, created_at
		FROM portfolio_assets WHERE user_id = ? ORDER BY symbol
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// UpdateAsset persists mutable holding fields
func (r *Repository) UpdateAsset(a *Asset) error {
	_, err := r.db.Exec(`
		UPDATE portfolio_assets
		SET name = ?, asset_class_id = ?, quantity = ?, currency = ?, is_ignored = ?
		WHERE id = ?
	`, a.Name, a.AssetClassID, a.Quantity, a.Currency, boolInt(a.IsIgnored), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return nil
}

// UpdatePrice stores the latest synced quote for a symbol across all holdings
// of that symbol.
func (r *Repository) UpdatePrice(symbol, price, currency string, priceDate time.Time) error {
	_, err := r.db.Exec(`
		UPDATE portfolio_assets
		SET last_price = ?, price_currency = ?, price_date = ?
		WHERE symbol = ?
	`, price, currency, priceDate.Format(time.RFC3339), symbol)
	if err != nil {
		return fmt.Errorf("failed to update asset price: %w", err)
	}
	return nil
}

// DeleteAsset removes a holding
func (r *Repository) DeleteAsset(id string) error {
	_, err := r.db.Exec("DELETE FROM portfolio_assets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// ListSymbols returns the distinct symbols held across all users
func (r *Repository) ListSymbols() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT symbol FROM portfolio_assets ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClass(row rowScanner) (*AssetClass, error) {
	var c AssetClass
	var createdAt string

	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.TargetMin, &c.TargetMax, &c.MaxAssets, &c.MinAllocationValue, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset class: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = t
	}
	return &c, nil
}

func scanAsset(row rowScanner) (*Asset, error) {
	var a Asset
	var isIgnored int
	var priceDate sql.NullString
	var createdAt string

	err := row.Scan(&a.ID, &a.UserID, &a.Symbol, &a.Name, &a.AssetClassID, &a.Quantity, &a.Currency,
		&a.LastPrice, &a.PriceCurrency, &priceDate, &isIgnored, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}

	a.IsIgnored = isIgnored == 1
	if priceDate.Valid {
		if t, err := time.Parse(time.RFC3339, priceDate.String); err == nil {
			a.PriceDate = &t
		}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	return &a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timePtrString(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
