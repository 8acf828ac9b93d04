package criteria

import (
	"time"

	"github.com/aristath/folioplan/pkg/money"
)

// Operator is a criterion comparison operator
type Operator string

const (
	OpGTE   Operator = "gte"
	OpLTE   Operator = "lte"
	OpEQ    Operator = "eq"
	OpRange Operator = "range"
)

// SkipReason explains why a criterion was not evaluated against an asset
type SkipReason string

const (
	SkipMissingFundamental SkipReason = "missing_fundamental"
	SkipDataStale          SkipReason = "data_stale"
	SkipInvalidValue       SkipReason = "invalid_value"
	SkipEvaluationError    SkipReason = "evaluation_error"
)

// Criterion is a single scoring rule. Criteria are immutable once their
// version exists; editing a rule means creating a new version.
type Criterion struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	MetricKey    string        `json:"metric_key"`
	Operator     Operator      `json:"operator"`
	Threshold    *money.Amount `json:"threshold,omitempty"`     // gte, lte, eq
	ThresholdMin *money.Amount `json:"threshold_min,omitempty"` // range
	ThresholdMax *money.Amount `json:"threshold_max,omitempty"` // range
	Points       int64         `json:"points"`
}

// Version is an immutable, user-owned set of criteria for a target market.
// Soft-deleted (IsActive=false) once score history references it; the
// database rejects hard deletes via ON DELETE RESTRICT.
type Version struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Name         string      `json:"name"`
	TargetMarket string      `json:"target_market"`
	Criteria     []Criterion `json:"criteria"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
}

// MaxScore returns the highest score an asset can reach under this version:
// the sum of all criterion points.
func (v *Version) MaxScore() int64 {
	var total int64
	for _, c := range v.Criteria {
		total += c.Points
	}
	return total
}

// Result is the outcome of evaluating one criterion against one asset.
// Skipped results always carry matched=false and zero points.
type Result struct {
	CriterionID   string      `json:"criterion_id"`
	CriterionName string      `json:"criterion_name"`
	Matched       bool        `json:"matched"`
	PointsAwarded int64       `json:"points_awarded"`
	ActualValue   *string     `json:"actual_value"`
	SkippedReason *SkipReason `json:"skipped_reason"`
}

// Fundamentals is the evaluator's view of one asset's metrics: nullable
// decimal strings keyed by metric name, plus a staleness flag set by the
// caller from the snapshot's age.
type Fundamentals struct {
	Metrics map[string]*string
	Stale   bool
}
