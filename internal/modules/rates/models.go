package rates

import "time"

// Rate is a stored exchange rate for a currency pair on a date. The rate value
// is a decimal string.
type Rate struct {
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         string    `json:"rate"`
	RateDate     time.Time `json:"rate_date"`
	Source       string    `json:"source"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Conversion is the result of converting an amount between currencies. Amounts
// and the rate are decimal strings; Converted carries the full-precision
// product and ConvertedDisplay the value rounded to the target currency's
// minor units.
type Conversion struct {
	Amount           string    `json:"amount"`
	FromCurrency     string    `json:"from_currency"`
	ToCurrency       string    `json:"to_currency"`
	Rate             string    `json:"rate"`
	Converted        string    `json:"converted"`
	ConvertedDisplay string    `json:"converted_display"`
	RateDate         time.Time `json:"rate_date"`
	RateSource       string    `json:"rate_source"`
	RateStale        bool      `json:"rate_stale"`
}
