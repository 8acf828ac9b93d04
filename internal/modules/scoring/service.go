package scoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/internal/modules/criteria"
	"github.com/aristath/folioplan/internal/modules/portfolio"
)

// CriteriaSource resolves the criteria version to score against.
type CriteriaSource interface {
	GetActiveVersion(userID, targetMarket string) (*criteria.Version, error)
}

// FundamentalsSource serves the evaluator's view of an asset's metrics.
type FundamentalsSource interface {
	ForEvaluation(symbol string, now time.Time) (*criteria.Fundamentals, error)
}

// AssetSource lists the user's holdings when no explicit symbols are given.
type AssetSource interface {
	ListAssets(userID string) ([]portfolio.Asset, error)
}

// Service runs scoring batches: it evaluates every criterion of the user's
// active version against each asset and persists the results.
type Service struct {
	repo         *Repository
	criteria     CriteriaSource
	fundamentals FundamentalsSource
	assets       AssetSource
	events       *events.Manager
	log          zerolog.Logger
}

// ServiceConfig holds scoring service dependencies
type ServiceConfig struct {
	Repo         *Repository
	Criteria     CriteriaSource
	Fundamentals FundamentalsSource
	Assets       AssetSource
	Events       *events.Manager
	Log          zerolog.Logger
}

// NewService creates a new scoring service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:         cfg.Repo,
		criteria:     cfg.Criteria,
		fundamentals: cfg.Fundamentals,
		assets:       cfg.Assets,
		events:       cfg.Events,
		log:          cfg.Log.With().Str("service", "scoring").Logger(),
	}
}

// CalculateInput selects what to score. With no symbols, every non-ignored
// holding is scored.
type CalculateInput struct {
	Symbols      []string `json:"symbols,omitempty"`
	TargetMarket string   `json:"target_market,omitempty"`
}

// CalculateScores runs one scoring batch. Failures are per-asset: one asset
// that cannot be scored is recorded as a failure and never aborts the rest.
// All records of the batch share one correlation id.
func (s *Service) CalculateScores(userID string, input CalculateInput) (*BatchResult, error) {
	version, err := s.criteria.GetActiveVersion(userID, input.TargetMarket)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, domain.NewNotFound("no active criteria version found")
	}

	symbols := input.Symbols
	if len(symbols) == 0 {
		symbols, err = s.heldSymbols(userID)
		if err != nil {
			return nil, err
		}
	}
	if len(symbols) == 0 {
		return nil, domain.NewValidation("no assets to score")
	}

	batch := &BatchResult{
		CorrelationID:     uuid.New().String(),
		CriteriaVersionID: version.ID,
		CalculatedAt:      time.Now(),
	}

	for _, symbol := range symbols {
		score, failReason := s.scoreAsset(userID, symbol, version, batch)
		if failReason != "" {
			batch.Failures = append(batch.Failures, AssetFailure{Symbol: symbol, Reason: failReason})
			continue
		}
		batch.Scores = append(batch.Scores, *score)
	}

	s.events.Emit(events.ScoresCalculated, "scoring", batch.CorrelationID, map[string]interface{}{
		"criteria_version_id": version.ID,
		"scored":              len(batch.Scores),
		"failed":              len(batch.Failures),
	})

	s.log.Info().
		Str("correlation_id", batch.CorrelationID).
		Int("scored", len(batch.Scores)).
		Int("failed", len(batch.Failures)).
		Msg("Scoring batch completed")

	return batch, nil
}

// scoreAsset evaluates one asset. A recovered panic or storage failure turns
// into a failure reason so the caller can keep going.
func (s *Service) scoreAsset(userID, symbol string, version *criteria.Version, batch *BatchResult) (score *AssetScore, failReason string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("symbol", symbol).Interface("panic", r).Msg("Scoring panicked")
			score = nil
			failReason = fmt.Sprintf("scoring failed unexpectedly: %v", r)
		}
	}()

	fundamentals, err := s.fundamentals.ForEvaluation(symbol, batch.CalculatedAt)
	if err != nil {
		return nil, fmt.Sprintf("failed to load fundamentals: %v", err)
	}
	if fundamentals == nil {
		return nil, "no fundamentals snapshot available"
	}

	var total int64
	results := make([]criteria.Result, 0, len(version.Criteria))
	for _, c := range version.Criteria {
		result := criteria.Evaluate(c, *fundamentals)
		total += result.PointsAwarded
		results = append(results, result)
	}

	score = &AssetScore{
		ID:                uuid.New().String(),
		UserID:            userID,
		Symbol:            symbol,
		CriteriaVersionID: version.ID,
		Score:             total,
		MaxPossibleScore:  version.MaxScore(),
		Results:           results,
		CorrelationID:     batch.CorrelationID,
		CalculatedAt:      batch.CalculatedAt,
	}

	if err := s.repo.Save(score); err != nil {
		return nil, fmt.Sprintf("failed to persist score: %v", err)
	}

	return score, ""
}

// GetScore returns the asset's current score
func (s *Service) GetScore(userID, symbol string) (*AssetScore, error) {
	score, err := s.repo.GetScore(userID, symbol)
	if err != nil {
		return nil, err
	}
	if score == nil {
		return nil, domain.NewNotFound("no score for %s", symbol)
	}
	return score, nil
}

// ListScores returns the user's current scores, highest first
func (s *Service) ListScores(userID string) ([]AssetScore, error) {
	return s.repo.ListScores(userID)
}

// History returns an asset's history points over the last days, oldest first,
// optionally with a trend computed over the window.
func (s *Service) History(userID, symbol string, days int, includeTrend bool) ([]HistoryPoint, *Trend, error) {
	if days <= 0 {
		days = 90
	}
	since := time.Now().AddDate(0, 0, -days)

	points, err := s.repo.GetHistory(userID, symbol, since)
	if err != nil {
		return nil, nil, err
	}

	var trend *Trend
	if includeTrend {
		trend, err = CalculateTrend(points)
		if err != nil {
			return nil, nil, err
		}
	}

	return points, trend, nil
}

func (s *Service) heldSymbols(userID string) ([]string, error) {
	assets, err := s.assets.ListAssets(userID)
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, a := range assets {
		if a.IsIgnored {
			continue
		}
		symbols = append(symbols, a.Symbol)
	}
	return symbols, nil
}
