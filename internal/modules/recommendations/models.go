package recommendations

import "time"

// Recommendation status constants
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Item is one suggested purchase. All numeric fields are decimal strings;
// Amount is in the recommendation's base currency, rounded to two places.
// Allocation fields describe the asset's class: current and target-minimum
// percentages and the gap between them (negative or zero for classes at or
// above target). Assets of over-allocated classes appear with a zero amount
// and IsOverAllocated set, so the plan reports them instead of hiding them.
type Item struct {
	Symbol            string `json:"symbol" msgpack:"symbol"`
	AssetClassID      string `json:"asset_class_id" msgpack:"asset_class_id"`
	ClassName         string `json:"class_name" msgpack:"class_name"`
	Score             int64  `json:"score,string" msgpack:"score"`
	MaxScore          int64  `json:"max_score,string" msgpack:"max_score"`
	CurrentAllocation string `json:"current_allocation" msgpack:"current_allocation"`
	TargetAllocation  string `json:"target_allocation" msgpack:"target_allocation"`
	AllocationGap     string `json:"allocation_gap" msgpack:"allocation_gap"`
	IsOverAllocated   bool   `json:"is_over_allocated" msgpack:"is_over_allocated"`
	Weight            string `json:"weight" msgpack:"weight"`
	Amount            string `json:"amount" msgpack:"amount"`
	Price             string `json:"price" msgpack:"price"`
}

// ConfirmLine is one purchase the user chose to execute: the actual amount
// spent and the price per unit obtained, both decimal strings.
type ConfirmLine struct {
	Symbol       string `json:"symbol"`
	ActualAmount string `json:"actual_amount"`
	PricePerUnit string `json:"price_per_unit"`
}

// Recommendation is one allocation plan for new money. Empty Items means the
// portfolio is already within its targets. A pending recommendation expires
// after its TTL; expiry is checked wherever the recommendation is read.
type Recommendation struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	Contribution    string     `json:"contribution"`
	Dividends       string     `json:"dividends"`
	TotalInvestable string     `json:"total_investable"`
	BaseCurrency    string     `json:"base_currency"`
	Items           []Item     `json:"items"`
	CorrelationID   string     `json:"correlation_id"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
}

// Expired reports whether the recommendation's TTL has passed.
func (r *Recommendation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Investment is one confirmed purchase derived from a recommendation item.
// Quantity is Amount / Price as an exact decimal string.
type Investment struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RecommendationID string    `json:"recommendation_id"`
	Symbol           string    `json:"symbol"`
	Amount           string    `json:"amount"`
	Price            string    `json:"price"`
	Quantity         string    `json:"quantity"`
	CreatedAt        time.Time `json:"created_at"`
}
