package fundamentals

import "time"

// Snapshot is the stored fundamentals record for one symbol. Metrics are
// nullable decimal strings keyed by metric name; a nil entry means the
// provider had no value.
type Snapshot struct {
	Symbol    string             `json:"symbol"`
	Metrics   map[string]*string `json:"metrics"`
	Source    string             `json:"source"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Age returns how old the snapshot is at the given instant.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
