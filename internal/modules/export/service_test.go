package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folioplan/internal/modules/portfolio"
	"github.com/aristath/folioplan/internal/modules/recommendations"
	"github.com/aristath/folioplan/internal/modules/scoring"
)

type stubSources struct {
	assets      []portfolio.Asset
	scores      []scoring.AssetScore
	investments []recommendations.Investment
}

func (s *stubSources) ListAssets(userID string) ([]portfolio.Asset, error) { return s.assets, nil }
func (s *stubSources) ListScores(userID string) ([]scoring.AssetScore, error) {
	return s.scores, nil
}
func (s *stubSources) ListInvestments(userID string) ([]recommendations.Investment, error) {
	return s.investments, nil
}

func strPtr(s string) *string { return &s }

func TestBuildArchive(t *testing.T) {
	sources := &stubSources{
		assets: []portfolio.Asset{
			{Symbol: "AAPL", Name: "Apple", Quantity: "10", Currency: "USD", LastPrice: strPtr("187.5"), PriceCurrency: "USD"},
		},
		scores: []scoring.AssetScore{
			{Symbol: "AAPL", Score: 10, MaxPossibleScore: 15, CriteriaVersionID: "v1", CalculatedAt: time.Now()},
		},
		investments: []recommendations.Investment{
			{Symbol: "AAPL", Amount: "200", Price: "50", Quantity: "4", RecommendationID: "r1", CreatedAt: time.Now()},
		},
	}

	service := NewService(ServiceConfig{
		Assets:      sources,
		Scores:      sources,
		Investments: sources,
		Log:         zerolog.Nop(),
	})

	blob, err := service.BuildArchive("user-1")
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)

	files := map[string][][]string{}
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		files[f.Name] = rows
	}

	require.Len(t, files, 3)

	assets := files["assets.csv"]
	require.Len(t, assets, 2)
	assert.Equal(t, "symbol", assets[0][0])
	assert.Equal(t, []string{"AAPL", "Apple", "10", "USD", "187.5", "USD", "false"}, assets[1])

	scores := files["scores.csv"]
	require.Len(t, scores, 2)
	assert.Equal(t, "AAPL", scores[1][0])
	assert.Equal(t, "10", scores[1][1])
	assert.Equal(t, "15", scores[1][2])

	investments := files["investments.csv"]
	require.Len(t, investments, 2)
	assert.Equal(t, []string{"AAPL", "200", "50", "4"}, investments[1][:4])
}

func TestBuildArchiveEmpty(t *testing.T) {
	sources := &stubSources{}
	service := NewService(ServiceConfig{
		Assets:      sources,
		Scores:      sources,
		Investments: sources,
		Log:         zerolog.Nop(),
	})

	blob, err := service.BuildArchive("user-1")
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	// Header-only CSVs for every data set.
	assert.Len(t, reader.File, 3)
}
