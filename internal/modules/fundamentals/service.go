package fundamentals

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/clients/marketdata"
	"github.com/aristath/folioplan/internal/modules/criteria"
)

// Fetcher is the slice of the market data client this service needs.
type Fetcher interface {
	GetFundamentals(symbol string) (*marketdata.FundamentalsSnapshot, error)
}

// Service syncs fundamentals snapshots from the provider and serves them to
// the scoring pipeline.
type Service struct {
	repo      *Repository
	client    Fetcher
	freshness time.Duration
	log       zerolog.Logger
}

// ServiceConfig holds fundamentals service dependencies
type ServiceConfig struct {
	Repo      *Repository
	Client    Fetcher
	Freshness time.Duration
	Log       zerolog.Logger
}

// NewService creates a new fundamentals service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		client:    cfg.Client,
		freshness: cfg.Freshness,
		log:       cfg.Log.With().Str("service", "fundamentals").Logger(),
	}
}

// Sync fetches and stores fresh snapshots for the given symbols. Failures are
// per-symbol: one bad symbol does not abort the rest.
func (s *Service) Sync(symbols []string) {
	for _, symbol := range symbols {
		snapshot, err := s.client.GetFundamentals(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch fundamentals")
			continue
		}

		err = s.repo.Upsert(&Snapshot{
			Symbol:    snapshot.Symbol,
			Metrics:   snapshot.Metrics,
			Source:    snapshot.Source,
			FetchedAt: snapshot.FetchedAt,
		})
		if err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to store fundamentals")
		}
	}
}

// Get returns the stored snapshot for a symbol, or nil when none exists
func (s *Service) Get(symbol string) (*Snapshot, error) {
	return s.repo.GetBySymbol(symbol)
}

// ForEvaluation returns the evaluator's view of a symbol's fundamentals, or
// nil when no snapshot exists. The staleness flag is derived from the
// snapshot's age against the configured freshness window.
func (s *Service) ForEvaluation(symbol string, now time.Time) (*criteria.Fundamentals, error) {
	snapshot, err := s.repo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}

	return &criteria.Fundamentals{
		Metrics: snapshot.Metrics,
		Stale:   s.freshness > 0 && snapshot.Age(now) > s.freshness,
	}, nil
}
