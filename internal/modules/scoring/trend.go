package scoring

import (
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/pkg/money"
)

// CalculateTrend computes score movement over a history window: first point
// against last, with the relative change as an exact decimal string. At least
// two points are required. A zero starting score makes relative change
// undefined, so that case is pinned to stable with change "0".
func CalculateTrend(points []HistoryPoint) (*Trend, error) {
	if len(points) < 2 {
		return nil, domain.NewValidation("trend needs at least two history points, got %d", len(points))
	}

	start := points[0].Score
	end := points[len(points)-1].Score

	trend := &Trend{
		StartScore:   start,
		EndScore:     end,
		Points:       len(points),
		AverageScore: averageScore(points),
	}

	if start == end || start == 0 {
		trend.Direction = TrendStable
		trend.ChangePercent = "0"
		return trend, nil
	}

	startAmount := money.FromInt(start)
	endAmount := money.FromInt(end)
	change, err := endAmount.Sub(startAmount).Mul(money.FromInt(100)).Div(startAmount)
	if err != nil {
		return nil, err
	}

	trend.ChangePercent = change.String()
	switch {
	case change.IsPositive():
		trend.Direction = TrendUp
	case change.IsNegative():
		trend.Direction = TrendDown
	default:
		trend.Direction = TrendStable
	}

	return trend, nil
}

// averageScore is a display statistic; float math is fine here.
func averageScore(points []HistoryPoint) string {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = float64(p.Score)
	}
	return strconv.FormatFloat(stat.Mean(values, nil), 'f', 2, 64)
}
