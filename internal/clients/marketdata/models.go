package marketdata

import "time"

// Quote is a price quote for one symbol. Close is a decimal string; numeric
// provider payloads are converted to strings at this edge so no float ever
// crosses into the calculation layers.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Close     string    `json:"close"`
	Currency  string    `json:"currency"`
	Source    string    `json:"source"`
	PriceDate time.Time `json:"price_date"`
	FetchedAt time.Time `json:"fetched_at"`
	IsStale   bool      `json:"is_stale"`
}

// FundamentalsSnapshot maps metric keys to nullable decimal strings for one
// symbol. A nil entry means the provider had no value for that metric.
type FundamentalsSnapshot struct {
	Symbol    string             `json:"symbol"`
	Metrics   map[string]*string `json:"metrics"`
	Source    string             `json:"source"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// RateQuote is an exchange-rate quote for a currency pair.
type RateQuote struct {
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         string    `json:"rate"`
	Source       string    `json:"source"`
	RateDate     time.Time `json:"rate_date"`
}

// Metric keys stored in fundamentals snapshots. Criteria reference these.
const (
	MetricPERatio       = "pe_ratio"
	MetricForwardPE     = "forward_pe"
	MetricPEGRatio      = "peg_ratio"
	MetricPriceToBook   = "price_to_book"
	MetricDividendYield = "dividend_yield"
	MetricPayoutRatio   = "payout_ratio"
	MetricProfitMargin  = "profit_margin"
	MetricDebtToEquity  = "debt_to_equity"
	MetricCurrentRatio  = "current_ratio"
	MetricROE           = "roe"
	MetricRevenueGrowth = "revenue_growth"
	MetricMarketCap     = "market_cap"
)
