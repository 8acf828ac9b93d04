package comparison

import "time"

// Difference type constants
const (
	DiffImproved  = "improved"
	DiffDeclined  = "declined"
	DiffUnchanged = "unchanged"
)

// AssetComparison is one asset scored under both criteria versions. Nothing
// here is persisted; comparisons are what-if runs. Ranks are 1-based within
// the compared set, equal scores share a rank.
type AssetComparison struct {
	Symbol         string `json:"symbol"`
	ScoreA         int64  `json:"score_a,string"`
	ScoreB         int64  `json:"score_b,string"`
	Difference     int64  `json:"difference,string"`
	DifferenceType string `json:"difference_type"`
	RankA          int    `json:"rank_a"`
	RankB          int    `json:"rank_b"`
}

// Result is the outcome of comparing two criteria versions over a set of
// assets. Averages are display statistics formatted to two decimal places.
type Result struct {
	VersionAID    string            `json:"version_a_id"`
	VersionBID    string            `json:"version_b_id"`
	Assets        []AssetComparison `json:"assets"`
	Skipped       []string          `json:"skipped,omitempty"`
	AverageA      string            `json:"average_a"`
	AverageB      string            `json:"average_b"`
	Improved      int               `json:"improved"`
	Declined      int               `json:"declined"`
	Unchanged     int               `json:"unchanged"`
	CorrelationID string            `json:"correlation_id"`
	ComparedAt    time.Time         `json:"compared_at"`
}
