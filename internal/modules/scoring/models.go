package scoring

import (
	"time"

	"github.com/aristath/folioplan/internal/modules/criteria"
)

// AssetScore is the current score for one asset under one criteria version.
// Score is the sum of matched criterion points and can never be negative;
// skipped criteria contribute nothing.
type AssetScore struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Symbol            string            `json:"symbol"`
	CriteriaVersionID string            `json:"criteria_version_id"`
	Score             int64             `json:"score,string"`
	MaxPossibleScore  int64             `json:"max_possible_score,string"`
	Results           []criteria.Result `json:"results"`
	CorrelationID     string            `json:"correlation_id"`
	CalculatedAt      time.Time         `json:"calculated_at"`
}

// HistoryPoint is one append-only score history record
type HistoryPoint struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	CriteriaVersionID string    `json:"criteria_version_id"`
	Score             int64     `json:"score,string"`
	MaxPossibleScore  int64     `json:"max_possible_score,string"`
	CorrelationID     string    `json:"correlation_id"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

// AssetFailure records why one asset in a batch could not be scored. A failed
// asset never aborts the rest of the batch.
type AssetFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// BatchResult is the outcome of one scoring run
type BatchResult struct {
	CorrelationID     string         `json:"correlation_id"`
	CriteriaVersionID string         `json:"criteria_version_id"`
	Scores            []AssetScore   `json:"scores"`
	Failures          []AssetFailure `json:"failures"`
	CalculatedAt      time.Time      `json:"calculated_at"`
}

// Trend direction constants
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Trend summarizes score movement over a history window. ChangePercent is a
// decimal string; a zero starting score pins the trend to stable/"0" since
// relative change is undefined there.
type Trend struct {
	Direction     string `json:"direction"`
	ChangePercent string `json:"change_percent"`
	StartScore    int64  `json:"start_score,string"`
	EndScore      int64  `json:"end_score,string"`
	Points        int    `json:"points"`
	AverageScore  string `json:"average_score"`
}
