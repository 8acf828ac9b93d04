package criteria

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
)

const testUserID = "user-1"

func setupService(t *testing.T, maxVersions int) (*Service, *sql.DB) {
	t.Helper()

	wrapper, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { wrapper.Close() })
	db := wrapper.Conn()

	require.NoError(t, auth.InitSchema(db))
	require.NoError(t, InitSchema(db))

	// Minimal score_history table so delete semantics can be exercised
	// without pulling in the scoring module.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS score_history (
			id TEXT PRIMARY KEY,
			criteria_version_id TEXT NOT NULL REFERENCES criteria_versions(id) ON DELETE RESTRICT
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO users (id, email, password_hash, base_currency, is_active, created_at)
		VALUES (?, 'test@example.com', 'x', 'EUR', 1, ?)
	`, testUserID, time.Now().Format(time.RFC3339))
	require.NoError(t, err)

	log := zerolog.Nop()
	service := NewService(ServiceConfig{
		Repo:        NewRepository(db, log),
		Events:      events.NewManager(log),
		MaxVersions: maxVersions,
		Log:         log,
	})

	return service, db
}

func validInput() CreateVersionInput {
	return CreateVersionInput{
		Name:         "Value screen",
		TargetMarket: "US",
		Criteria: []CriterionInput{
			{Name: "Low P/E", MetricKey: "pe_ratio", Operator: "lte", Threshold: strPtr("20"), Points: 10},
			{Name: "Pays dividends", MetricKey: "dividend_yield", Operator: "gte", Threshold: strPtr("2"), Points: 5},
		},
	}
}

func TestCreateVersion(t *testing.T) {
	service, _ := setupService(t, 10)

	version, err := service.CreateVersion(testUserID, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, version.ID)
	assert.Len(t, version.Criteria, 2)
	assert.Equal(t, int64(15), version.MaxScore())

	loaded, err := service.GetVersion(testUserID, version.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Criteria, 2)
	assert.Equal(t, "Low P/E", loaded.Criteria[0].Name)
	assert.Equal(t, "20", loaded.Criteria[0].Threshold.String())
}

func TestCreateVersionValidation(t *testing.T) {
	service, _ := setupService(t, 10)

	tests := []struct {
		name   string
		mutate func(*CreateVersionInput)
	}{
		{"empty name", func(in *CreateVersionInput) { in.Name = "" }},
		{"no criteria", func(in *CreateVersionInput) { in.Criteria = nil }},
		{"zero points", func(in *CreateVersionInput) { in.Criteria[0].Points = 0 }},
		{"negative points", func(in *CreateVersionInput) { in.Criteria[0].Points = -5 }},
		{"gte without threshold", func(in *CreateVersionInput) { in.Criteria[0].Threshold = nil }},
		{"non-decimal threshold", func(in *CreateVersionInput) { in.Criteria[0].Threshold = strPtr("abc") }},
		{"unknown operator", func(in *CreateVersionInput) { in.Criteria[0].Operator = "between" }},
		{"range missing max", func(in *CreateVersionInput) {
			in.Criteria[0].Operator = "range"
			in.Criteria[0].ThresholdMin = strPtr("1")
			in.Criteria[0].ThresholdMax = nil
		}},
		{"range min above max", func(in *CreateVersionInput) {
			in.Criteria[0].Operator = "range"
			in.Criteria[0].ThresholdMin = strPtr("10")
			in.Criteria[0].ThresholdMax = strPtr("5")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := service.CreateVersion(testUserID, input)
			require.Error(t, err)
			de, ok := domain.AsError(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeValidation, de.Code)
		})
	}
}

func TestCreateVersionLimit(t *testing.T) {
	service, _ := setupService(t, 2)

	for i := 0; i < 2; i++ {
		_, err := service.CreateVersion(testUserID, validInput())
		require.NoError(t, err)
	}

	_, err := service.CreateVersion(testUserID, validInput())
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeLimitExceeded, de.Code)
}

func TestGetVersionOwnership(t *testing.T) {
	service, _ := setupService(t, 10)

	version, err := service.CreateVersion(testUserID, validInput())
	require.NoError(t, err)

	_, err = service.GetVersion("someone-else", version.ID)
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, de.Code)
}

func TestDeleteVersion(t *testing.T) {
	t.Run("hard delete without history", func(t *testing.T) {
		service, _ := setupService(t, 10)

		version, err := service.CreateVersion(testUserID, validInput())
		require.NoError(t, err)

		require.NoError(t, service.DeleteVersion(testUserID, version.ID))

		_, err = service.GetVersion(testUserID, version.ID)
		require.Error(t, err)
	})

	t.Run("soft delete with history", func(t *testing.T) {
		service, db := setupService(t, 10)

		version, err := service.CreateVersion(testUserID, validInput())
		require.NoError(t, err)

		_, err = db.Exec("INSERT INTO score_history (id, criteria_version_id) VALUES ('h1', ?)", version.ID)
		require.NoError(t, err)

		require.NoError(t, service.DeleteVersion(testUserID, version.ID))

		loaded, err := service.GetVersion(testUserID, version.ID)
		require.NoError(t, err)
		assert.False(t, loaded.IsActive)
	})
}

func TestCopyVersion(t *testing.T) {
	service, _ := setupService(t, 10)

	source, err := service.CreateVersion(testUserID, validInput())
	require.NoError(t, err)

	copied, err := service.CopyVersion(testUserID, source.ID, "")
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, "Value screen (copy)", copied.Name)
	require.Len(t, copied.Criteria, len(source.Criteria))
	for i := range copied.Criteria {
		assert.NotEqual(t, source.Criteria[i].ID, copied.Criteria[i].ID)
		assert.Equal(t, source.Criteria[i].MetricKey, copied.Criteria[i].MetricKey)
		assert.Equal(t, source.Criteria[i].Points, copied.Criteria[i].Points)
	}
}
