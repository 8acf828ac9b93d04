package recommendations

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
	"github.com/aristath/folioplan/internal/modules/portfolio"
	"github.com/aristath/folioplan/internal/modules/rates"
	"github.com/aristath/folioplan/internal/modules/scoring"
	"github.com/aristath/folioplan/pkg/money"
)

const testUserID = "user-1"

func strPtr(s string) *string { return &s }

type stubPortfolio struct {
	valuation *portfolio.Valuation
	classes   []portfolio.AssetClass
	assets    []portfolio.Asset
}

func (p *stubPortfolio) ListAssets(userID string) ([]portfolio.Asset, error) {
	return p.assets, nil
}

func (p *stubPortfolio) ListClasses(userID string) ([]portfolio.AssetClass, error) {
	return p.classes, nil
}

func (p *stubPortfolio) Valuation(userID, baseCurrency string, asOf time.Time, correlationID string) (*portfolio.Valuation, error) {
	return p.valuation, nil
}

type stubScores struct {
	scores []scoring.AssetScore
}

func (s *stubScores) ListScores(userID string) ([]scoring.AssetScore, error) {
	return s.scores, nil
}

type identityConverter struct{}

func (identityConverter) Convert(amount money.Amount, from, to string, asOf time.Time, correlationID string) (*rates.Conversion, error) {
	return &rates.Conversion{Converted: amount.String(), Rate: "1"}, nil
}

func setupService(t *testing.T, ttl time.Duration, p *stubPortfolio, scores *stubScores) (*Service, *sql.DB) {
	t.Helper()

	wrapper, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { wrapper.Close() })
	db := wrapper.Conn()

	require.NoError(t, InitSchema(db))
	// Confirm updates holding quantities, so the portfolio tables are real.
	require.NoError(t, portfolio.InitSchema(db))
	// The user_id FK needs a users table.
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id) VALUES (?)`, testUserID)
	require.NoError(t, err)

	log := zerolog.Nop()
	service := NewService(ServiceConfig{
		Repo:      NewRepository(db, log),
		Portfolio: p,
		Scores:    scores,
		Converter: identityConverter{},
		Events:    events.NewManager(log),
		TTL:       ttl,
		Log:       log,
	})
	return service, db
}

func seedHolding(t *testing.T, db *sql.DB, symbol, quantity string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO portfolio_assets (id, user_id, symbol, quantity, currency, created_at)
		VALUES (?, ?, ?, ?, 'EUR', ?)
	`, "asset-"+symbol, testUserID, symbol, quantity, time.Now().Format(time.RFC3339))
	require.NoError(t, err)
}

// underweightFixture is a portfolio with one underweight class (gap of 10
// percentage points) holding two assets, one scored 15/15 and one unscored.
func underweightFixture() (*stubPortfolio, *stubScores) {
	classID := "growth"
	p := &stubPortfolio{
		valuation: &portfolio.Valuation{
			BaseCurrency: "EUR",
			TotalValue:   "10000",
			Classes: []portfolio.ClassAllocation{
				{ClassID: classID, Name: "Growth", Percent: "20.00", TargetMin: "30", TargetMax: "50", Underweight: true},
			},
		},
		classes: []portfolio.AssetClass{
			{ID: classID, UserID: testUserID, Name: "Growth", TargetMin: "30", TargetMax: "50"},
		},
		assets: []portfolio.Asset{
			{Symbol: "TOP", AssetClassID: &classID, Quantity: "10", Currency: "EUR", LastPrice: strPtr("50"), PriceCurrency: "EUR"},
			{Symbol: "UNSCORED", AssetClassID: &classID, Quantity: "10", Currency: "EUR", LastPrice: strPtr("25"), PriceCurrency: "EUR"},
		},
	}
	scores := &stubScores{scores: []scoring.AssetScore{
		{Symbol: "TOP", Score: 15, MaxPossibleScore: 15},
	}}
	return p, scores
}

func TestRecommendBalancedPortfolio(t *testing.T) {
	p := &stubPortfolio{
		valuation: &portfolio.Valuation{
			BaseCurrency: "EUR",
			TotalValue:   "10000",
			Classes: []portfolio.ClassAllocation{
				{ClassID: "c1", Name: "Stocks", Percent: "60.00", TargetMin: "50", TargetMax: "70"},
			},
		},
	}
	service, _ := setupService(t, time.Hour, p, &stubScores{})

	rec, err := service.Recommend(testUserID, "EUR", "500", "0")
	require.NoError(t, err)
	assert.NotNil(t, rec.Items)
	assert.Empty(t, rec.Items)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, "500", rec.TotalInvestable)
}

func TestRecommendWeighting(t *testing.T) {
	p, scores := underweightFixture()
	service, _ := setupService(t, time.Hour, p, scores)

	rec, err := service.Recommend(testUserID, "EUR", "200", "100")
	require.NoError(t, err)
	require.Len(t, rec.Items, 2)

	// Gap is 10. TOP: weight 10 x (1 + 15/15) = 20. UNSCORED: weight 10.
	// 300 total splits 200/100.
	assert.Equal(t, "TOP", rec.Items[0].Symbol)
	assert.Equal(t, "200", rec.Items[0].Amount)
	assert.Equal(t, "20", rec.Items[0].Weight)
	assert.Equal(t, "UNSCORED", rec.Items[1].Symbol)
	assert.Equal(t, "100", rec.Items[1].Amount)

	// Both inputs survive on the plan, not just their sum.
	assert.Equal(t, "200", rec.Contribution)
	assert.Equal(t, "100", rec.Dividends)
	assert.Equal(t, "300", rec.TotalInvestable)

	// Items carry the class allocation picture.
	assert.Equal(t, "20.00", rec.Items[0].CurrentAllocation)
	assert.Equal(t, "30", rec.Items[0].TargetAllocation)
	assert.Equal(t, "10", rec.Items[0].AllocationGap)
	assert.False(t, rec.Items[0].IsOverAllocated)
}

func TestRecommendReportsOverAllocatedClasses(t *testing.T) {
	growthID := "growth"
	bondsID := "bonds"
	p := &stubPortfolio{
		valuation: &portfolio.Valuation{
			BaseCurrency: "EUR",
			TotalValue:   "10000",
			Classes: []portfolio.ClassAllocation{
				{ClassID: growthID, Name: "Growth", Percent: "20.00", TargetMin: "30", TargetMax: "50", Underweight: true},
				{ClassID: bondsID, Name: "Bonds", Percent: "45.00", TargetMin: "10", TargetMax: "40", Overweight: true},
			},
		},
		classes: []portfolio.AssetClass{
			{ID: growthID, UserID: testUserID, Name: "Growth", TargetMin: "30", TargetMax: "50"},
			{ID: bondsID, UserID: testUserID, Name: "Bonds", TargetMin: "10", TargetMax: "40"},
		},
		assets: []portfolio.Asset{
			{Symbol: "TOP", AssetClassID: &growthID, Quantity: "10", Currency: "EUR", LastPrice: strPtr("50"), PriceCurrency: "EUR"},
			{Symbol: "HEAVY", AssetClassID: &bondsID, Quantity: "10", Currency: "EUR", LastPrice: strPtr("45"), PriceCurrency: "EUR"},
		},
	}
	service, _ := setupService(t, time.Hour, p, &stubScores{})

	rec, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)
	require.Len(t, rec.Items, 2)

	bySymbol := map[string]Item{}
	for _, item := range rec.Items {
		bySymbol[item.Symbol] = item
	}

	// The overweight class's asset is reported, not funded.
	heavy := bySymbol["HEAVY"]
	assert.True(t, heavy.IsOverAllocated)
	assert.Equal(t, "0", heavy.Amount)
	assert.Equal(t, "45.00", heavy.CurrentAllocation)
	assert.Equal(t, "10", heavy.TargetAllocation)
	assert.Equal(t, "-35", heavy.AllocationGap)

	top := bySymbol["TOP"]
	assert.False(t, top.IsOverAllocated)
	assert.Equal(t, "300", top.Amount)
}

func TestRecommendCacheHit(t *testing.T) {
	p, scores := underweightFixture()
	service, _ := setupService(t, time.Hour, p, scores)

	first, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)
	second, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different amount bypasses the cached plan.
	third, err := service.Recommend(testUserID, "EUR", "400", "0")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestRecommendValidation(t *testing.T) {
	p, scores := underweightFixture()
	service, _ := setupService(t, time.Hour, p, scores)

	for _, tc := range []struct{ contribution, dividends string }{
		{"abc", "0"},
		{"100", "x"},
		{"-100", "0"},
		{"0", "0"},
		{"", ""},
	} {
		_, err := service.Recommend(testUserID, "EUR", tc.contribution, tc.dividends)
		require.Error(t, err)
		de, ok := domain.AsError(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeValidation, de.Code)
	}
}

func TestRecommendMinAllocationValue(t *testing.T) {
	p, scores := underweightFixture()
	p.classes[0].MinAllocationValue = "150"
	service, _ := setupService(t, time.Hour, p, scores)

	// UNSCORED's share (100) falls below the class minimum and is dropped.
	rec, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "TOP", rec.Items[0].Symbol)
}

func TestConfirm(t *testing.T) {
	p, scores := underweightFixture()
	service, db := setupService(t, time.Hour, p, scores)
	seedHolding(t, db, "TOP", "10")
	seedHolding(t, db, "UNSCORED", "10")

	rec, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)

	confirmed, err := service.Confirm(testUserID, rec.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	investments, err := service.ListInvestments(testUserID)
	require.NoError(t, err)
	require.Len(t, investments, 2)

	bySymbol := map[string]Investment{}
	for _, inv := range investments {
		bySymbol[inv.Symbol] = inv
	}
	// 200 EUR at 50 EUR -> 4 units; 100 EUR at 25 EUR -> 4 units.
	assert.Equal(t, "4", bySymbol["TOP"].Quantity)
	assert.Equal(t, "4", bySymbol["UNSCORED"].Quantity)

	// Holdings grew by the confirmed quantities.
	var held string
	require.NoError(t, db.QueryRow(
		`SELECT quantity FROM portfolio_assets WHERE user_id = ? AND symbol = ?`,
		testUserID, "TOP",
	).Scan(&held))
	assert.Equal(t, "14", held)
}

func TestConfirmTwiceRejected(t *testing.T) {
	p, scores := underweightFixture()
	service, _ := setupService(t, time.Hour, p, scores)

	rec, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)

	_, err = service.Confirm(testUserID, rec.ID, nil)
	require.NoError(t, err)

	_, err = service.Confirm(testUserID, rec.ID, nil)
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConflict, de.Code)
}

func TestConfirmExpiredRejected(t *testing.T) {
	p, scores := underweightFixture()
	service, _ := setupService(t, -time.Minute, p, scores)

	rec, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)

	_, err = service.Confirm(testUserID, rec.ID, nil)
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConflict, de.Code)
}

func TestConfirmEmptyPlanRejected(t *testing.T) {
	p := &stubPortfolio{
		valuation: &portfolio.Valuation{BaseCurrency: "EUR", TotalValue: "10000"},
	}
	service, _ := setupService(t, time.Hour, p, &stubScores{})

	rec, err := service.Recommend(testUserID, "EUR", "500", "0")
	require.NoError(t, err)
	require.Empty(t, rec.Items)

	_, err = service.Confirm(testUserID, rec.ID, nil)
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeValidation, de.Code)
}

func TestConfirmWithChosenLines(t *testing.T) {
	p, scores := underweightFixture()
	service, db := setupService(t, time.Hour, p, scores)
	seedHolding(t, db, "TOP", "10")
	seedHolding(t, db, "UNSCORED", "10")

	rec, err := service.Recommend(testUserID, "EUR", "200", "100")
	require.NoError(t, err)
	require.Len(t, rec.Items, 2)

	// The user executed only TOP, and at a different amount and price
	// than the plan suggested.
	confirmed, err := service.Confirm(testUserID, rec.ID, []ConfirmLine{
		{Symbol: "TOP", ActualAmount: "50", PricePerUnit: "10"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	investments, err := service.ListInvestments(testUserID)
	require.NoError(t, err)
	require.Len(t, investments, 1)
	assert.Equal(t, "TOP", investments[0].Symbol)
	assert.Equal(t, "50", investments[0].Amount)
	assert.Equal(t, "10", investments[0].Price)
	assert.Equal(t, "5", investments[0].Quantity)

	// Only the executed line touches holdings.
	var held string
	require.NoError(t, db.QueryRow(
		`SELECT quantity FROM portfolio_assets WHERE user_id = ? AND symbol = ?`,
		testUserID, "TOP",
	).Scan(&held))
	assert.Equal(t, "15", held)
	require.NoError(t, db.QueryRow(
		`SELECT quantity FROM portfolio_assets WHERE user_id = ? AND symbol = ?`,
		testUserID, "UNSCORED",
	).Scan(&held))
	assert.Equal(t, "10", held)
}

func TestConfirmSkipsZeroedLines(t *testing.T) {
	p, scores := underweightFixture()
	service, db := setupService(t, time.Hour, p, scores)
	seedHolding(t, db, "TOP", "10")
	seedHolding(t, db, "UNSCORED", "10")

	rec, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)

	_, err = service.Confirm(testUserID, rec.ID, []ConfirmLine{
		{Symbol: "TOP", ActualAmount: "0", PricePerUnit: "10"},
		{Symbol: "UNSCORED", ActualAmount: "50", PricePerUnit: "25"},
	})
	require.NoError(t, err)

	investments, err := service.ListInvestments(testUserID)
	require.NoError(t, err)
	require.Len(t, investments, 1)
	assert.Equal(t, "UNSCORED", investments[0].Symbol)
	assert.Equal(t, "2", investments[0].Quantity)
}

func TestConfirmLineValidation(t *testing.T) {
	p, scores := underweightFixture()

	for name, lines := range map[string][]ConfirmLine{
		"unknown symbol":    {{Symbol: "GHOST", ActualAmount: "50", PricePerUnit: "10"}},
		"bad amount":        {{Symbol: "TOP", ActualAmount: "abc", PricePerUnit: "10"}},
		"bad price":         {{Symbol: "TOP", ActualAmount: "50", PricePerUnit: "0"}},
		"every line zeroed": {{Symbol: "TOP", ActualAmount: "0", PricePerUnit: "10"}},
		"negative amounts":  {{Symbol: "TOP", ActualAmount: "-50", PricePerUnit: "10"}},
	} {
		t.Run(name, func(t *testing.T) {
			service, _ := setupService(t, time.Hour, p, scores)
			rec, err := service.Recommend(testUserID, "EUR", "300", "0")
			require.NoError(t, err)

			_, err = service.Confirm(testUserID, rec.ID, lines)
			require.Error(t, err)
			de, ok := domain.AsError(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeValidation, de.Code)

			// A rejected confirm leaves the plan pending.
			kept, err := service.Recommend(testUserID, "EUR", "300", "0")
			require.NoError(t, err)
			assert.Equal(t, rec.ID, kept.ID)
		})
	}
}

func TestRecommendationPersistsInputsAndAllocations(t *testing.T) {
	p, scores := underweightFixture()
	service, _ := setupService(t, time.Hour, p, scores)

	rec, err := service.Recommend(testUserID, "EUR", "200", "100")
	require.NoError(t, err)

	stored, err := service.repo.GetByID(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "200", stored.Contribution)
	assert.Equal(t, "100", stored.Dividends)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "20.00", stored.Items[0].CurrentAllocation)
	assert.Equal(t, "30", stored.Items[0].TargetAllocation)
	assert.Equal(t, "10", stored.Items[0].AllocationGap)
	assert.False(t, stored.Items[0].IsOverAllocated)
}

func TestDeleteExpired(t *testing.T) {
	p, scores := underweightFixture()
	service, _ := setupService(t, -time.Minute, p, scores)

	_, err := service.Recommend(testUserID, "EUR", "300", "0")
	require.NoError(t, err)

	removed, err := service.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
