package rates

import (
	"strings"
	"time"

	gomoney "github.com/Rhymond/go-money"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/pkg/money"
)

// Converter converts amounts between currencies using stored rates. All
// arithmetic is exact; rounding happens only for the display field, to the
// target currency's minor units.
type Converter struct {
	repo      *Repository
	events    *events.Manager
	freshness time.Duration
	log       zerolog.Logger
}

// ConverterConfig holds converter dependencies
type ConverterConfig struct {
	Repo      *Repository
	Events    *events.Manager
	Freshness time.Duration
	Log       zerolog.Logger
}

// NewConverter creates a new currency converter
func NewConverter(cfg ConverterConfig) *Converter {
	return &Converter{
		repo:      cfg.Repo,
		events:    cfg.Events,
		freshness: cfg.Freshness,
		log:       cfg.Log.With().Str("service", "rates").Logger(),
	}
}

// Convert converts amount from one currency to another using the most recent
// stored rate at or before asOf. Same-currency conversions short-circuit with
// rate 1 and never touch the rate store.
func (c *Converter) Convert(amount money.Amount, from, to string, asOf time.Time, correlationID string) (*Conversion, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == "" || to == "" {
		return nil, domain.NewValidation("both currencies are required")
	}

	if from == to {
		return &Conversion{
			Amount:           amount.String(),
			FromCurrency:     from,
			ToCurrency:       to,
			Rate:             "1",
			Converted:        amount.String(),
			ConvertedDisplay: displayRound(amount, to),
			RateDate:         asOf,
			RateSource:       "identity",
		}, nil
	}

	stored, err := c.repo.GetRate(from, to, asOf)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.NewRateNotFound(from, to)
	}

	rate, err := money.Parse(stored.Rate)
	if err != nil {
		return nil, domain.NewValidation("stored rate for %s/%s is not a decimal: %v", from, to, err)
	}

	converted := amount.Mul(rate)

	conversion := &Conversion{
		Amount:           amount.String(),
		FromCurrency:     from,
		ToCurrency:       to,
		Rate:             rate.String(),
		Converted:        converted.String(),
		ConvertedDisplay: displayRound(converted, to),
		RateDate:         stored.RateDate,
		RateSource:       stored.Source,
		RateStale:        c.freshness > 0 && asOf.Sub(stored.RateDate) > c.freshness,
	}

	if err := c.repo.LogConversion(correlationID, conversion); err != nil {
		c.log.Warn().Err(err).Msg("Failed to log conversion")
	}

	c.events.Emit(events.CurrencyConverted, "rates", correlationID, map[string]interface{}{
		"from":      from,
		"to":        to,
		"rate":      conversion.Rate,
		"rate_date": conversion.RateDate.Format(dateLayout),
	})

	return conversion, nil
}

// displayRound rounds an exact amount to the currency's minor units for
// display, half up. Unknown currency codes fall back to two decimal places.
func displayRound(a money.Amount, currencyCode string) string {
	fraction := 2
	if currency := gomoney.GetCurrency(currencyCode); currency != nil {
		fraction = currency.Fraction
	}
	return a.StringFixed(int32(fraction))
}
