package comparison

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/server/respond"
)

// Handlers provides HTTP handlers for the comparison module
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new comparison handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "comparison").Logger(),
	}
}

// Routes returns the comparison routes
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/compare", h.HandleCompare)
	return r
}

// HandleCompare handles POST /api/criteria/compare
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var input CompareInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	result, err := h.service.Compare(auth.UserID(r.Context()), input)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}
