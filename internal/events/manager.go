package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different audit event types
type EventType string

const (
	UserRegistered        EventType = "USER_REGISTERED"
	UserDeactivated       EventType = "USER_DEACTIVATED"
	ScoresCalculated      EventType = "SCORES_CALCULATED"
	CriteriaVersionCopied EventType = "CRITERIA_VERSION_COPIED"
	CriteriaCompared      EventType = "CRITERIA_COMPARED"
	CurrencyConverted     EventType = "CURRENCY_CONVERTED"
	RecommendationCreated EventType = "RECOMMENDATION_CREATED"
	InvestmentsConfirmed  EventType = "INVESTMENTS_CONFIRMED"
	RatesRefreshed        EventType = "RATES_REFRESHED"
	ErrorOccurred         EventType = "ERROR_OCCURRED"
)

// Event represents an audit event. CorrelationID groups all records produced
// by one logical operation (e.g. every score in a batch).
type Event struct {
	Type          EventType              `json:"type"`
	Timestamp     time.Time              `json:"timestamp"`
	Module        string                 `json:"module"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Data          map[string]interface{} `json:"data"`
}

// Manager handles event emission and logging
type Manager struct {
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log: log.With().Str("service", "events").Logger(),
	}
}

// Emit emits an audit event
func (m *Manager) Emit(eventType EventType, module, correlationID string, data map[string]interface{}) {
	event := Event{
		Type:          eventType,
		Timestamp:     time.Now(),
		Module:        module,
		CorrelationID: correlationID,
		Data:          data,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		Str("correlation_id", correlationID).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, "", data)
}
