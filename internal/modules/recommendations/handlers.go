package recommendations

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/server/respond"
)

// Handlers provides HTTP handlers for the recommendations module
type Handlers struct {
	service      *Service
	users        *auth.Repository
	baseCurrency string
	log          zerolog.Logger
}

// NewHandlers creates a new recommendations handlers instance
func NewHandlers(service *Service, users *auth.Repository, baseCurrency string, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:      service,
		users:        users,
		baseCurrency: baseCurrency,
		log:          log.With().Str("handler", "recommendations").Logger(),
	}
}

// Routes returns the recommendations routes
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleRecommend)
	r.Post("/{recommendationID}/confirm", h.HandleConfirm)
	r.Get("/investments", h.HandleListInvestments)
	return r
}

// HandleRecommend handles GET /api/recommendations?contribution=&dividends=
func (h *Handlers) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	query := r.URL.Query()

	rec, err := h.service.Recommend(userID, h.userCurrency(userID), query.Get("contribution"), query.Get("dividends"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

type confirmRequest struct {
	Items []ConfirmLine `json:"items"`
}

// HandleConfirm handles POST /api/recommendations/{recommendationID}/confirm.
// The body lists the lines the user chose to execute; an empty body confirms
// the plan as recommended.
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, h.log, domain.NewValidation("invalid request body"))
			return
		}
	}

	rec, err := h.service.Confirm(auth.UserID(r.Context()), chi.URLParam(r, "recommendationID"), req.Items)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

// HandleListInvestments handles GET /api/recommendations/investments
func (h *Handlers) HandleListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.service.ListInvestments(auth.UserID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if investments == nil {
		investments = []Investment{}
	}
	respond.JSON(w, http.StatusOK, investments)
}

func (h *Handlers) userCurrency(userID string) string {
	if user, err := h.users.GetByID(userID); err == nil && user != nil && user.BaseCurrency != "" {
		return user.BaseCurrency
	}
	return h.baseCurrency
}
