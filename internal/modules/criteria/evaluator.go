package criteria

import (
	"fmt"

	"github.com/aristath/folioplan/pkg/money"
)

// Evaluate applies one criterion to one asset's fundamentals and returns a
// tagged result: matched with points, unmatched, or skipped with a reason.
// Evaluation never fails; unexpected problems become skipped results so a
// single bad criterion cannot abort a scoring run.
func Evaluate(c Criterion, fundamentals Fundamentals) (result Result) {
	result = Result{
		CriterionID:   c.ID,
		CriterionName: c.Name,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Matched = false
			result.PointsAwarded = 0
			result.SkippedReason = skipReason(SkipEvaluationError)
		}
	}()

	raw, ok := fundamentals.Metrics[c.MetricKey]
	if !ok || raw == nil {
		result.SkippedReason = skipReason(SkipMissingFundamental)
		return result
	}

	if fundamentals.Stale {
		result.ActualValue = raw
		result.SkippedReason = skipReason(SkipDataStale)
		return result
	}

	value, err := money.Parse(*raw)
	if err != nil {
		result.ActualValue = raw
		result.SkippedReason = skipReason(SkipInvalidValue)
		return result
	}
	result.ActualValue = raw

	matched, err := matches(c, value)
	if err != nil {
		result.SkippedReason = skipReason(SkipEvaluationError)
		return result
	}

	if matched {
		result.Matched = true
		result.PointsAwarded = c.Points
	}

	return result
}

// matches applies the criterion's operator to the parsed value.
func matches(c Criterion, value money.Amount) (bool, error) {
	switch c.Operator {
	case OpGTE:
		if c.Threshold == nil {
			return false, fmt.Errorf("criterion %s has no threshold", c.ID)
		}
		return value.Cmp(*c.Threshold) >= 0, nil

	case OpLTE:
		if c.Threshold == nil {
			return false, fmt.Errorf("criterion %s has no threshold", c.ID)
		}
		return value.Cmp(*c.Threshold) <= 0, nil

	case OpEQ:
		if c.Threshold == nil {
			return false, fmt.Errorf("criterion %s has no threshold", c.ID)
		}
		// Exact decimal equality: 1.50 == 1.5.
		return value.Equal(*c.Threshold), nil

	case OpRange:
		if c.ThresholdMin == nil || c.ThresholdMax == nil {
			return false, fmt.Errorf("criterion %s has incomplete range bounds", c.ID)
		}
		// Inclusive on both ends.
		return value.Cmp(*c.ThresholdMin) >= 0 && value.Cmp(*c.ThresholdMax) <= 0, nil

	default:
		return false, fmt.Errorf("unknown operator %q", c.Operator)
	}
}

func skipReason(r SkipReason) *SkipReason {
	return &r
}
