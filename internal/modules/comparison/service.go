package comparison

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/internal/modules/criteria"
	"github.com/aristath/folioplan/internal/modules/portfolio"
)

// VersionSource resolves criteria versions with ownership checks.
type VersionSource interface {
	GetVersion(userID, versionID string) (*criteria.Version, error)
}

// FundamentalsSource serves the evaluator's view of an asset's metrics.
type FundamentalsSource interface {
	ForEvaluation(symbol string, now time.Time) (*criteria.Fundamentals, error)
}

// AssetSource lists the user's holdings when no explicit symbols are given.
type AssetSource interface {
	ListAssets(userID string) ([]portfolio.Asset, error)
}

// Service compares two criteria versions by scoring the same assets under
// both. Comparison runs never persist scores or history.
type Service struct {
	versions     VersionSource
	fundamentals FundamentalsSource
	assets       AssetSource
	events       *events.Manager
	log          zerolog.Logger
}

// ServiceConfig holds comparison service dependencies
type ServiceConfig struct {
	Versions     VersionSource
	Fundamentals FundamentalsSource
	Assets       AssetSource
	Events       *events.Manager
	Log          zerolog.Logger
}

// NewService creates a new comparison service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		versions:     cfg.Versions,
		fundamentals: cfg.Fundamentals,
		assets:       cfg.Assets,
		events:       cfg.Events,
		log:          cfg.Log.With().Str("service", "comparison").Logger(),
	}
}

// CompareInput selects the two versions and optionally the symbols to compare
type CompareInput struct {
	VersionAID string   `json:"version_a_id"`
	VersionBID string   `json:"version_b_id"`
	Symbols    []string `json:"symbols,omitempty"`
}

// Compare scores the selected assets under both versions and reports the
// per-asset and aggregate differences. Identical version ids are rejected
// before anything is scored.
func (s *Service) Compare(userID string, input CompareInput) (*Result, error) {
	if input.VersionAID == "" || input.VersionBID == "" {
		return nil, domain.NewValidation("both version ids are required")
	}
	if input.VersionAID == input.VersionBID {
		return nil, domain.NewValidation("cannot compare a criteria version against itself")
	}

	versionA, err := s.versions.GetVersion(userID, input.VersionAID)
	if err != nil {
		return nil, err
	}
	versionB, err := s.versions.GetVersion(userID, input.VersionBID)
	if err != nil {
		return nil, err
	}

	symbols := input.Symbols
	if len(symbols) == 0 {
		symbols, err = s.heldSymbols(userID)
		if err != nil {
			return nil, err
		}
	}
	if len(symbols) == 0 {
		return nil, domain.NewValidation("no assets to compare")
	}

	result := &Result{
		VersionAID:    versionA.ID,
		VersionBID:    versionB.ID,
		CorrelationID: uuid.New().String(),
		ComparedAt:    time.Now(),
	}

	for _, symbol := range symbols {
		fundamentals, err := s.fundamentals.ForEvaluation(symbol, result.ComparedAt)
		if err != nil {
			return nil, err
		}
		if fundamentals == nil {
			result.Skipped = append(result.Skipped, symbol)
			continue
		}

		scoreA := scoreUnder(versionA, *fundamentals)
		scoreB := scoreUnder(versionB, *fundamentals)

		comparison := AssetComparison{
			Symbol:     symbol,
			ScoreA:     scoreA,
			ScoreB:     scoreB,
			Difference: scoreB - scoreA,
		}
		switch {
		case comparison.Difference > 0:
			comparison.DifferenceType = DiffImproved
			result.Improved++
		case comparison.Difference < 0:
			comparison.DifferenceType = DiffDeclined
			result.Declined++
		default:
			comparison.DifferenceType = DiffUnchanged
			result.Unchanged++
		}
		result.Assets = append(result.Assets, comparison)
	}

	assignRanks(result.Assets)
	result.AverageA = average(result.Assets, func(a AssetComparison) int64 { return a.ScoreA })
	result.AverageB = average(result.Assets, func(a AssetComparison) int64 { return a.ScoreB })

	s.events.Emit(events.CriteriaCompared, "comparison", result.CorrelationID, map[string]interface{}{
		"version_a_id": versionA.ID,
		"version_b_id": versionB.ID,
		"assets":       len(result.Assets),
	})

	return result, nil
}

// scoreUnder sums matched criterion points without persisting anything.
func scoreUnder(version *criteria.Version, fundamentals criteria.Fundamentals) int64 {
	var total int64
	for _, c := range version.Criteria {
		total += criteria.Evaluate(c, fundamentals).PointsAwarded
	}
	return total
}

// assignRanks fills 1-based ranks under each version.
func assignRanks(assets []AssetComparison) {
	ranksA := competitionRanks(assets, func(a AssetComparison) int64 { return a.ScoreA })
	ranksB := competitionRanks(assets, func(a AssetComparison) int64 { return a.ScoreB })
	for i := range assets {
		assets[i].RankA = ranksA[i]
		assets[i].RankB = ranksB[i]
	}
}

// competitionRanks returns one 1-based rank per asset index, highest score
// first; equal scores share a rank.
func competitionRanks(assets []AssetComparison, score func(AssetComparison) int64) []int {
	order := make([]int, len(assets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return score(assets[order[i]]) > score(assets[order[j]])
	})

	ranks := make([]int, len(assets))
	for pos, idx := range order {
		rank := pos + 1
		if pos > 0 && score(assets[idx]) == score(assets[order[pos-1]]) {
			rank = ranks[order[pos-1]]
		}
		ranks[idx] = rank
	}
	return ranks
}

func average(assets []AssetComparison, score func(AssetComparison) int64) string {
	if len(assets) == 0 {
		return "0"
	}
	values := make([]float64, len(assets))
	for i, a := range assets {
		values[i] = float64(score(a))
	}
	return strconv.FormatFloat(stat.Mean(values, nil), 'f', 2, 64)
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
