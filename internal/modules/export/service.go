package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/modules/portfolio"
	"github.com/aristath/folioplan/internal/modules/recommendations"
	"github.com/aristath/folioplan/internal/modules/scoring"
)

// AssetSource lists the user's holdings.
type AssetSource interface {
	ListAssets(userID string) ([]portfolio.Asset, error)
}

// ScoreSource lists the user's current scores.
type ScoreSource interface {
	ListScores(userID string) ([]scoring.AssetScore, error)
}

// InvestmentSource lists the user's confirmed investments.
type InvestmentSource interface {
	ListInvestments(userID string) ([]recommendations.Investment, error)
}

// Service builds portfolio data exports: one ZIP archive holding a CSV per
// data set. Values are exported as the decimal strings they are stored as.
type Service struct {
	assets      AssetSource
	scores      ScoreSource
	investments InvestmentSource
	log         zerolog.Logger
}

// ServiceConfig holds export service dependencies
type ServiceConfig struct {
	Assets      AssetSource
	Scores      ScoreSource
	Investments InvestmentSource
	Log         zerolog.Logger
}

// NewService creates a new export service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		assets:      cfg.Assets,
		scores:      cfg.Scores,
		investments: cfg.Investments,
		log:         cfg.Log.With().Str("service", "export").Logger(),
	}
}

// BuildArchive writes holdings, scores and investments as CSV files into one
// ZIP archive and returns its bytes.
func (s *Service) BuildArchive(userID string) ([]byte, error) {
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)

	if err := s.writeAssets(archive, userID); err != nil {
		return nil, err
	}
	if err := s.writeScores(archive, userID); err != nil {
		return nil, err
	}
	if err := s.writeInvestments(archive, userID); err != nil {
		return nil, err
	}

	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize export archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) writeAssets(archive *zip.Writer, userID string) error {
	assets, err := s.assets.ListAssets(userID)
	if err != nil {
		return err
	}

	rows := [][]string{{"symbol", "name", "quantity", "currency", "last_price", "price_currency", "is_ignored"}}
	for _, a := range assets {
		price := ""
		if a.LastPrice != nil {
			price = *a.LastPrice
		}
		rows = append(rows, []string{
			a.Symbol, a.Name, a.Quantity, a.Currency, price, a.PriceCurrency,
			strconv.FormatBool(a.IsIgnored),
		})
	}
	return writeCSV(archive, "assets.csv", rows)
}

func (s *Service) writeScores(archive *zip.Writer, userID string) error {
	scores, err := s.scores.ListScores(userID)
	if err != nil {
		return err
	}

	rows := [][]string{{"symbol", "score", "max_possible_score", "criteria_version_id", "calculated_at"}}
	for _, score := range scores {
		rows = append(rows, []string{
			score.Symbol,
			strconv.FormatInt(score.Score, 10),
			strconv.FormatInt(score.MaxPossibleScore, 10),
			score.CriteriaVersionID,
			score.CalculatedAt.Format(time.RFC3339),
		})
	}
	return writeCSV(archive, "scores.csv", rows)
}

func (s *Service) writeInvestments(archive *zip.Writer, userID string) error {
	investments, err := s.investments.ListInvestments(userID)
	if err != nil {
		return err
	}

	rows := [][]string{{"symbol", "amount", "price", "quantity", "recommendation_id", "created_at"}}
	for _, inv := range investments {
		rows = append(rows, []string{
			inv.Symbol, inv.Amount, inv.Price, inv.Quantity, inv.RecommendationID,
			inv.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeCSV(archive, "investments.csv", rows)
}

func writeCSV(archive *zip.Writer, name string, rows [][]string) error {
	file, err := archive.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s in archive: %w", name, err)
	}

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
