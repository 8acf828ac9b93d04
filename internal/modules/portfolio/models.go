package portfolio

import "time"

// AssetClass is a user-defined allocation bucket with target bounds. Targets
// are percentages as decimal strings; MinAllocationValue is in the portfolio's
// base currency.
type AssetClass struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	TargetMin          string    `json:"target_min"`
	TargetMax          string    `json:"target_max"`
	MaxAssets          int       `json:"max_assets"`
	MinAllocationValue string    `json:"min_allocation_value"`
	CreatedAt          time.Time `json:"created_at"`
}

// Asset is one holding. Quantity and prices are decimal strings; LastPrice is
// the latest synced quote in PriceCurrency. Ignored assets still count toward
// the portfolio total but are excluded from class allocations and from
// recommendations.
type Asset struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	AssetClassID  *string    `json:"asset_class_id"`
	Quantity      string     `json:"quantity"`
	Currency      string     `json:"currency"`
	LastPrice     *string    `json:"last_price"`
	PriceCurrency string     `json:"price_currency,omitempty"`
	PriceDate     *time.Time `json:"price_date,omitempty"`
	IsIgnored     bool       `json:"is_ignored"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ClassAllocation is one asset class's slice of the portfolio valuation.
// Value and Percent are decimal strings; Percent is rounded to two places for
// display while target comparisons use the exact value.
type ClassAllocation struct {
	ClassID     string `json:"class_id"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Percent     string `json:"percent"`
	TargetMin   string `json:"target_min"`
	TargetMax   string `json:"target_max"`
	Underweight bool   `json:"underweight"`
	Overweight  bool   `json:"overweight"`
	AssetCount  int    `json:"asset_count"`
}

// Valuation is the portfolio's current value in the base currency, broken
// down by asset class. Ignored and unpriced assets are reported so the caller
// can see what the totals do not include.
type Valuation struct {
	BaseCurrency   string            `json:"base_currency"`
	TotalValue     string            `json:"total_value"`
	Classes        []ClassAllocation `json:"classes"`
	IgnoredValue   string            `json:"ignored_value"`
	UnpricedAssets []string          `json:"unpriced_assets,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	AsOf           time.Time         `json:"as_of"`
}
