package scoring

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/server/respond"
)

// Handlers provides HTTP handlers for the scoring module
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new scoring handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "scoring").Logger(),
	}
}

// Routes returns the scoring routes
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/calculate", h.HandleCalculate)
	r.Get("/{symbol}", h.HandleGet)
	r.Get("/{symbol}/history", h.HandleHistory)
	return r
}

// HandleCalculate handles POST /api/scores/calculate
func (h *Handlers) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var input CalculateInput
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respond.Error(w, h.log, domain.NewValidation("invalid request body"))
			return
		}
	}

	batch, err := h.service.CalculateScores(auth.UserID(r.Context()), input)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, batch)
}

// HandleList handles GET /api/scores
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.ListScores(auth.UserID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if scores == nil {
		scores = []AssetScore{}
	}
	respond.JSON(w, http.StatusOK, scores)
}

// HandleGet handles GET /api/scores/{symbol}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.GetScore(auth.UserID(r.Context()), chi.URLParam(r, "symbol"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, score)
}

type historyResponse struct {
	Points []HistoryPoint `json:"points"`
	Trend  *Trend         `json:"trend,omitempty"`
}

// HandleHistory handles GET /api/scores/{symbol}/history?days=&include_trend=
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respond.Error(w, h.log, domain.NewValidation("days must be a positive integer"))
			return
		}
		days = parsed
	}
	// Both spellings are accepted.
	includeTrend := r.URL.Query().Get("include_trend") == "true" ||
		r.URL.Query().Get("includeTrend") == "true"

	points, trend, err := h.service.History(auth.UserID(r.Context()), chi.URLParam(r, "symbol"), days, includeTrend)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if points == nil {
		points = []HistoryPoint{}
	}
	respond.JSON(w, http.StatusOK, historyResponse{Points: points, Trend: trend})
}
