package rates

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folioplan/internal/database"
	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/pkg/money"
)

func setupConverter(t *testing.T, freshness time.Duration) (*Converter, *Repository) {
	t.Helper()

	wrapper, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { wrapper.Close() })
	db := wrapper.Conn()
	require.NoError(t, InitSchema(db))

	log := zerolog.Nop()
	repo := NewRepository(db, log)
	converter := NewConverter(ConverterConfig{
		Repo:      repo,
		Events:    events.NewManager(log),
		Freshness: freshness,
		Log:       log,
	})
	return converter, repo
}

func mustAmount(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return a
}

func TestConvertSameCurrency(t *testing.T) {
	converter, _ := setupConverter(t, 24*time.Hour)

	// No rate stored at all; same-currency must not need one.
	conversion, err := converter.Convert(mustAmount(t, "100"), "USD", "USD", time.Now(), "")
	require.NoError(t, err)

	assert.Equal(t, "1", conversion.Rate)
	assert.Equal(t, "100", conversion.Converted)
	assert.Equal(t, "100.00", conversion.ConvertedDisplay)
	assert.Equal(t, "identity", conversion.RateSource)
	assert.False(t, conversion.RateStale)
}

func TestConvertUsesMostRecentRateAtOrBefore(t *testing.T) {
	converter, repo := setupConverter(t, 0)
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	for _, r := range []Rate{
		{FromCurrency: "EUR", ToCurrency: "USD", Rate: "1.05", RateDate: now.AddDate(0, 0, -10), Source: "test", FetchedAt: now},
		{FromCurrency: "EUR", ToCurrency: "USD", Rate: "1.10", RateDate: now.AddDate(0, 0, -2), Source: "test", FetchedAt: now},
		{FromCurrency: "EUR", ToCurrency: "USD", Rate: "1.20", RateDate: now.AddDate(0, 0, 5), Source: "test", FetchedAt: now},
	} {
		rate := r
		require.NoError(t, repo.Upsert(&rate))
	}

	conversion, err := converter.Convert(mustAmount(t, "100"), "EUR", "USD", now, "corr-1")
	require.NoError(t, err)

	// The future-dated 1.20 rate must not be used.
	assert.Equal(t, "1.1", conversion.Rate)
	assert.Equal(t, "110", conversion.Converted)
	assert.Equal(t, "110.00", conversion.ConvertedDisplay)
	assert.Equal(t, "test", conversion.RateSource)

	// The conversion log carries the rate's source.
	var loggedSource string
	require.NoError(t, repo.db.QueryRow(
		`SELECT rate_source FROM conversion_log WHERE correlation_id = ?`, "corr-1",
	).Scan(&loggedSource))
	assert.Equal(t, "test", loggedSource)
}

func TestConvertExactArithmetic(t *testing.T) {
	converter, repo := setupConverter(t, 0)
	now := time.Now()

	require.NoError(t, repo.Upsert(&Rate{
		FromCurrency: "EUR", ToCurrency: "USD", Rate: "1.0833",
		RateDate: now, Source: "test", FetchedAt: now,
	}))

	conversion, err := converter.Convert(mustAmount(t, "123.45"), "EUR", "USD", now, "")
	require.NoError(t, err)

	assert.Equal(t, "133.733385", conversion.Converted)
	assert.Equal(t, "133.73", conversion.ConvertedDisplay)
}

func TestConvertZeroDecimalCurrencyDisplay(t *testing.T) {
	converter, repo := setupConverter(t, 0)
	now := time.Now()

	require.NoError(t, repo.Upsert(&Rate{
		FromCurrency: "USD", ToCurrency: "JPY", Rate: "148.5",
		RateDate: now, Source: "test", FetchedAt: now,
	}))

	conversion, err := converter.Convert(mustAmount(t, "10"), "USD", "JPY", now, "")
	require.NoError(t, err)

	assert.Equal(t, "1485", conversion.Converted)
	// JPY has no minor units.
	assert.Equal(t, "1485", conversion.ConvertedDisplay)
}

func TestConvertRateNotFound(t *testing.T) {
	converter, _ := setupConverter(t, 0)

	_, err := converter.Convert(mustAmount(t, "100"), "EUR", "CHF", time.Now(), "")
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeRateNotFound, de.Code)
}

func TestConvertStaleRateFlag(t *testing.T) {
	converter, repo := setupConverter(t, 24*time.Hour)
	now := time.Now()

	require.NoError(t, repo.Upsert(&Rate{
		FromCurrency: "EUR", ToCurrency: "GBP", Rate: "0.85",
		RateDate: now.AddDate(0, 0, -5), Source: "test", FetchedAt: now.AddDate(0, 0, -5),
	}))

	conversion, err := converter.Convert(mustAmount(t, "50"), "EUR", "GBP", now, "")
	require.NoError(t, err)
	assert.True(t, conversion.RateStale)
}
