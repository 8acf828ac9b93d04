package scoring

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folioplan/internal/database"
	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/modules/criteria"
	"github.com/aristath/folioplan/internal/modules/portfolio"
	"github.com/aristath/folioplan/pkg/money"
)

const testUserID = "user-1"

func strPtr(s string) *string { return &s }

type stubCriteria struct {
	version *criteria.Version
}

func (c *stubCriteria) GetActiveVersion(userID, targetMarket string) (*criteria.Version, error) {
	return c.version, nil
}

type stubFundamentals struct {
	bySymbol map[string]*criteria.Fundamentals
}

func (f *stubFundamentals) ForEvaluation(symbol string, now time.Time) (*criteria.Fundamentals, error) {
	return f.bySymbol[symbol], nil
}

type stubAssets struct {
	assets []portfolio.Asset
}

func (a *stubAssets) ListAssets(userID string) ([]portfolio.Asset, error) {
	return a.assets, nil
}

func setupScoring(t *testing.T, version *criteria.Version, fundamentals *stubFundamentals, assets *stubAssets) (*Service, *sql.DB) {
	t.Helper()

	wrapper, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { wrapper.Close() })
	db := wrapper.Conn()

	require.NoError(t, auth.InitSchema(db))
	require.NoError(t, criteria.InitSchema(db))
	require.NoError(t, InitSchema(db))

	_, err = db.Exec(`
		INSERT INTO users (id, email, password_hash, base_currency, is_active, created_at)
		VALUES (?, 'test@example.com', 'x', 'EUR', 1, ?)
	`, testUserID, time.Now().Format(time.RFC3339))
	require.NoError(t, err)

	log := zerolog.Nop()
	if version != nil {
		require.NoError(t, criteria.NewRepository(db, log).CreateVersion(version))
	}

	service := NewService(ServiceConfig{
		Repo:         NewRepository(db, log),
		Criteria:     &stubCriteria{version: version},
		Fundamentals: fundamentals,
		Assets:       assets,
		Events:       events.NewManager(log),
		Log:          log,
	})
	return service, db
}

func testVersion(t *testing.T) *criteria.Version {
	t.Helper()

	threshold := func(s string) *money.Amount {
		a, err := money.Parse(s)
		require.NoError(t, err)
		return &a
	}

	return &criteria.Version{
		ID:        "version-1",
		UserID:    testUserID,
		Name:      "Value screen",
		IsActive:  true,
		CreatedAt: time.Now(),
		Criteria: []criteria.Criterion{
			{ID: "c1", Name: "Low P/E", MetricKey: "pe_ratio", Operator: criteria.OpLTE, Threshold: threshold("20"), Points: 10},
			{ID: "c2", Name: "Pays dividends", MetricKey: "dividend_yield", Operator: criteria.OpGTE, Threshold: threshold("2"), Points: 5},
		},
	}
}

func TestCalculateScores(t *testing.T) {
	fundamentals := &stubFundamentals{bySymbol: map[string]*criteria.Fundamentals{
		"AAPL": {Metrics: map[string]*string{
			"pe_ratio":       strPtr("15"),
			"dividend_yield": nil,
		}},
		"MSFT": {Metrics: map[string]*string{
			"pe_ratio":       strPtr("30"),
			"dividend_yield": strPtr("2.5"),
		}},
	}}

	service, _ := setupScoring(t, testVersion(t), fundamentals, &stubAssets{})

	batch, err := service.CalculateScores(testUserID, CalculateInput{Symbols: []string{"AAPL", "MSFT"}})
	require.NoError(t, err)
	require.Len(t, batch.Scores, 2)
	assert.Empty(t, batch.Failures)
	assert.NotEmpty(t, batch.CorrelationID)

	byScore := map[string]AssetScore{}
	for _, s := range batch.Scores {
		byScore[s.Symbol] = s
	}

	// AAPL: P/E matches (10), dividend yield missing (skipped).
	aapl := byScore["AAPL"]
	assert.Equal(t, int64(10), aapl.Score)
	assert.Equal(t, int64(15), aapl.MaxPossibleScore)
	assert.Equal(t, batch.CorrelationID, aapl.CorrelationID)
	require.Len(t, aapl.Results, 2)
	require.NotNil(t, aapl.Results[1].SkippedReason)
	assert.Equal(t, criteria.SkipMissingFundamental, *aapl.Results[1].SkippedReason)

	// MSFT: P/E too high, dividend yield matches (5).
	assert.Equal(t, int64(5), byScore["MSFT"].Score)
}

func TestCalculateScoresPerAssetIsolation(t *testing.T) {
	fundamentals := &stubFundamentals{bySymbol: map[string]*criteria.Fundamentals{
		"GOOD": {Metrics: map[string]*string{
			"pe_ratio":       strPtr("10"),
			"dividend_yield": strPtr("3"),
		}},
		// NODATA has no snapshot at all.
	}}

	service, _ := setupScoring(t, testVersion(t), fundamentals, &stubAssets{})

	batch, err := service.CalculateScores(testUserID, CalculateInput{Symbols: []string{"NODATA", "GOOD"}})
	require.NoError(t, err)

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "NODATA", batch.Failures[0].Symbol)
	require.Len(t, batch.Scores, 1)
	assert.Equal(t, int64(15), batch.Scores[0].Score)
}

func TestCalculateScoresNoCriteria(t *testing.T) {
	service, _ := setupScoring(t, nil, &stubFundamentals{}, &stubAssets{})

	_, err := service.CalculateScores(testUserID, CalculateInput{Symbols: []string{"AAPL"}})
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, de.Code)
}

func TestCalculateScoresDefaultsToHoldings(t *testing.T) {
	fundamentals := &stubFundamentals{bySymbol: map[string]*criteria.Fundamentals{
		"HELD": {Metrics: map[string]*string{
			"pe_ratio":       strPtr("10"),
			"dividend_yield": strPtr("3"),
		}},
	}}
	assets := &stubAssets{assets: []portfolio.Asset{
		{Symbol: "HELD"},
		{Symbol: "IGNORED", IsIgnored: true},
	}}

	service, _ := setupScoring(t, testVersion(t), fundamentals, assets)

	batch, err := service.CalculateScores(testUserID, CalculateInput{})
	require.NoError(t, err)
	require.Len(t, batch.Scores, 1)
	assert.Equal(t, "HELD", batch.Scores[0].Symbol)
}

func TestScoreHistoryAppendsAndTrends(t *testing.T) {
	fundamentals := &stubFundamentals{bySymbol: map[string]*criteria.Fundamentals{
		"AAPL": {Metrics: map[string]*string{
			"pe_ratio":       strPtr("15"),
			"dividend_yield": strPtr("1"),
		}},
	}}

	service, _ := setupScoring(t, testVersion(t), fundamentals, &stubAssets{})

	// First run: only the P/E criterion matches.
	_, err := service.CalculateScores(testUserID, CalculateInput{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	// Second run: dividends improved, both match.
	fundamentals.bySymbol["AAPL"].Metrics["dividend_yield"] = strPtr("3")
	_, err = service.CalculateScores(testUserID, CalculateInput{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	points, trend, err := service.History(testUserID, "AAPL", 30, true)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(10), points[0].Score)
	assert.Equal(t, int64(15), points[1].Score)

	require.NotNil(t, trend)
	assert.Equal(t, TrendUp, trend.Direction)
	assert.Equal(t, "50", trend.ChangePercent)
}

func TestHardDeleteScoredVersionRejected(t *testing.T) {
	fundamentals := &stubFundamentals{bySymbol: map[string]*criteria.Fundamentals{
		"AAPL": {Metrics: map[string]*string{
			"pe_ratio":       strPtr("15"),
			"dividend_yield": strPtr("3"),
		}},
	}}

	service, db := setupScoring(t, testVersion(t), fundamentals, &stubAssets{})

	_, err := service.CalculateScores(testUserID, CalculateInput{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	// History pins the version; the RESTRICT constraint must reject this.
	_, err = db.Exec("DELETE FROM criteria_versions WHERE id = 'version-1'")
	require.Error(t, err)
}
