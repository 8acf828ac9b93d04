package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folioplan/pkg/money"
)

func strPtr(s string) *string { return &s }

func amountPtr(t *testing.T, s string) *money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return &a
}

func TestEvaluateOperators(t *testing.T) {
	fundamentals := Fundamentals{
		Metrics: map[string]*string{
			"pe_ratio":       strPtr("15"),
			"dividend_yield": strPtr("3.5"),
			"debt_to_equity": strPtr("0.5"),
		},
	}

	tests := []struct {
		name      string
		criterion Criterion
		matched   bool
	}{
		{
			name: "lte matches below threshold",
			criterion: Criterion{
				ID: "c1", MetricKey: "pe_ratio", Operator: OpLTE,
				Threshold: amountPtr(t, "20"), Points: 10,
			},
			matched: true,
		},
		{
			name: "lte matches at threshold",
			criterion: Criterion{
				ID: "c2", MetricKey: "pe_ratio", Operator: OpLTE,
				Threshold: amountPtr(t, "15"), Points: 10,
			},
			matched: true,
		},
		{
			name: "gte fails below threshold",
			criterion: Criterion{
				ID: "c3", MetricKey: "dividend_yield", Operator: OpGTE,
				Threshold: amountPtr(t, "4"), Points: 5,
			},
			matched: false,
		},
		{
			name: "eq matches across representations",
			criterion: Criterion{
				ID: "c4", MetricKey: "debt_to_equity", Operator: OpEQ,
				Threshold: amountPtr(t, "0.50"), Points: 3,
			},
			matched: true,
		},
		{
			name: "range inclusive on both ends",
			criterion: Criterion{
				ID: "c5", MetricKey: "pe_ratio", Operator: OpRange,
				ThresholdMin: amountPtr(t, "15"), ThresholdMax: amountPtr(t, "25"), Points: 7,
			},
			matched: true,
		},
		{
			name: "range excludes values outside",
			criterion: Criterion{
				ID: "c6", MetricKey: "dividend_yield", Operator: OpRange,
				ThresholdMin: amountPtr(t, "4"), ThresholdMax: amountPtr(t, "6"), Points: 7,
			},
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(tt.criterion, fundamentals)
			assert.Nil(t, result.SkippedReason)
			assert.Equal(t, tt.matched, result.Matched)
			if tt.matched {
				assert.Equal(t, tt.criterion.Points, result.PointsAwarded)
			} else {
				assert.Zero(t, result.PointsAwarded)
			}
		})
	}
}

func TestEvaluateSkipReasons(t *testing.T) {
	criterion := Criterion{
		ID: "c1", MetricKey: "dividend_yield", Operator: OpGTE,
		Threshold: amountPtr(t, "2"), Points: 5,
	}

	t.Run("missing metric key", func(t *testing.T) {
		result := Evaluate(criterion, Fundamentals{Metrics: map[string]*string{}})
		require.NotNil(t, result.SkippedReason)
		assert.Equal(t, SkipMissingFundamental, *result.SkippedReason)
		assert.False(t, result.Matched)
		assert.Zero(t, result.PointsAwarded)
	})

	t.Run("null metric value", func(t *testing.T) {
		result := Evaluate(criterion, Fundamentals{
			Metrics: map[string]*string{"dividend_yield": nil},
		})
		require.NotNil(t, result.SkippedReason)
		assert.Equal(t, SkipMissingFundamental, *result.SkippedReason)
	})

	t.Run("stale snapshot", func(t *testing.T) {
		result := Evaluate(criterion, Fundamentals{
			Metrics: map[string]*string{"dividend_yield": strPtr("3.5")},
			Stale:   true,
		})
		require.NotNil(t, result.SkippedReason)
		assert.Equal(t, SkipDataStale, *result.SkippedReason)
	})

	t.Run("unparseable value", func(t *testing.T) {
		result := Evaluate(criterion, Fundamentals{
			Metrics: map[string]*string{"dividend_yield": strPtr("N/A")},
		})
		require.NotNil(t, result.SkippedReason)
		assert.Equal(t, SkipInvalidValue, *result.SkippedReason)
	})

	t.Run("missing threshold becomes evaluation error", func(t *testing.T) {
		broken := Criterion{ID: "c2", MetricKey: "dividend_yield", Operator: OpGTE, Points: 5}
		result := Evaluate(broken, Fundamentals{
			Metrics: map[string]*string{"dividend_yield": strPtr("3.5")},
		})
		require.NotNil(t, result.SkippedReason)
		assert.Equal(t, SkipEvaluationError, *result.SkippedReason)
	})

	t.Run("unknown operator becomes evaluation error", func(t *testing.T) {
		broken := Criterion{
			ID: "c3", MetricKey: "dividend_yield", Operator: Operator("between"),
			Threshold: amountPtr(t, "2"), Points: 5,
		}
		result := Evaluate(broken, Fundamentals{
			Metrics: map[string]*string{"dividend_yield": strPtr("3.5")},
		})
		require.NotNil(t, result.SkippedReason)
		assert.Equal(t, SkipEvaluationError, *result.SkippedReason)
	})
}
