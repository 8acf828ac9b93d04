package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/clients/marketdata"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/internal/modules/rates"
)

// PriceSyncer refreshes stored quotes for held symbols.
type PriceSyncer interface {
	SyncPrices() (int, error)
}

// FundamentalsSyncer refreshes stored fundamentals snapshots.
type FundamentalsSyncer interface {
	Sync(symbols []string)
}

// SymbolLister returns the symbols whose data should be kept fresh.
type SymbolLister interface {
	ListSymbols() ([]string, error)
}

// RateFetcher fetches current exchange rates from the provider.
type RateFetcher interface {
	GetExchangeRate(from, to string) (*marketdata.RateQuote, error)
}

// DataRefreshJob keeps market data current: held-symbol prices and
// fundamentals, plus exchange rates for every stored currency pair.
// Prices are critical; the other steps log and continue.
type DataRefreshJob struct {
	log          zerolog.Logger
	prices       PriceSyncer
	fundamentals FundamentalsSyncer
	symbols      SymbolLister
	rateFetcher  RateFetcher
	rateRepo     *rates.Repository
	events       *events.Manager
}

// DataRefreshConfig holds configuration for the data refresh job
type DataRefreshConfig struct {
	Log          zerolog.Logger
	Prices       PriceSyncer
	Fundamentals FundamentalsSyncer
	Symbols      SymbolLister
	RateFetcher  RateFetcher
	RateRepo     *rates.Repository
	Events       *events.Manager
}

// NewDataRefreshJob creates a new data refresh job
func NewDataRefreshJob(cfg DataRefreshConfig) *DataRefreshJob {
	return &DataRefreshJob{
		log:          cfg.Log.With().Str("job", "data_refresh").Logger(),
		prices:       cfg.Prices,
		fundamentals: cfg.Fundamentals,
		symbols:      cfg.Symbols,
		rateFetcher:  cfg.RateFetcher,
		rateRepo:     cfg.RateRepo,
		events:       cfg.Events,
	}
}

// Name returns the job name
func (j *DataRefreshJob) Name() string {
	return "data_refresh"
}

// Run executes the refresh cycle
func (j *DataRefreshJob) Run() error {
	j.log.Info().Msg("Starting data refresh")
	startTime := time.Now()

	if err := j.syncPrices(); err != nil {
		return err
	}
	j.syncFundamentals()
	j.refreshRates()

	j.log.Info().Dur("duration", time.Since(startTime)).Msg("Data refresh completed")
	return nil
}

func (j *DataRefreshJob) syncPrices() error {
	updated, err := j.prices.SyncPrices()
	if err != nil {
		return fmt.Errorf("price sync failed: %w", err)
	}
	j.log.Debug().Int("updated", updated).Msg("Price sync completed")
	return nil
}

// syncFundamentals is non-critical; per-symbol failures are already handled
// inside the sync.
func (j *DataRefreshJob) syncFundamentals() {
	symbols, err := j.symbols.ListSymbols()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list held symbols")
		return
	}
	if len(symbols) == 0 {
		return
	}
	j.fundamentals.Sync(symbols)
	j.log.Debug().Int("symbols", len(symbols)).Msg("Fundamentals sync completed")
}

// refreshRates re-fetches every currency pair that already has stored rates.
// Non-critical - a pair that fails keeps its previous rate.
func (j *DataRefreshJob) refreshRates() {
	pairs, err := j.rateRepo.ListPairs()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list currency pairs")
		return
	}

	refreshed := 0
	for _, pair := range pairs {
		quote, err := j.rateFetcher.GetExchangeRate(pair[0], pair[1])
		if err != nil {
			j.log.Warn().Err(err).
				Str("from", pair[0]).
				Str("to", pair[1]).
				Msg("Rate refresh failed")
			continue
		}

		err = j.rateRepo.Upsert(&rates.Rate{
			FromCurrency: quote.FromCurrency,
			ToCurrency:   quote.ToCurrency,
			Rate:         quote.Rate,
			RateDate:     quote.RateDate,
			Source:       quote.Source,
			FetchedAt:    time.Now(),
		})
		if err != nil {
			j.log.Warn().Err(err).
				Str("from", pair[0]).
				Str("to", pair[1]).
				Msg("Failed to store refreshed rate")
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		j.events.Emit(events.RatesRefreshed, "scheduler", "", map[string]interface{}{
			"pairs": refreshed,
		})
	}
	j.log.Debug().Int("refreshed", refreshed).Int("pairs", len(pairs)).Msg("Rate refresh completed")
}
