package rates

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/server/respond"
	"github.com/aristath/folioplan/pkg/money"
)

// Handlers provides HTTP handlers for the rates module
type Handlers struct {
	converter *Converter
	log       zerolog.Logger
}

// NewHandlers creates a new rates handlers instance
func NewHandlers(converter *Converter, log zerolog.Logger) *Handlers {
	return &Handlers{
		converter: converter,
		log:       log.With().Str("handler", "rates").Logger(),
	}
}

// Routes returns the rates routes
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/convert", h.HandleConvert)
	return r
}

type convertRequest struct {
	Amount       string `json:"amount"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	AsOf         string `json:"as_of,omitempty"` // YYYY-MM-DD, defaults to today
}

// HandleConvert handles POST /api/rates/convert
func (h *Handlers) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		respond.Error(w, h.log, domain.NewValidation("amount must be a decimal string"))
		return
	}

	asOf := time.Now()
	if req.AsOf != "" {
		asOf, err = time.Parse(dateLayout, req.AsOf)
		if err != nil {
			respond.Error(w, h.log, domain.NewValidation("as_of must be a YYYY-MM-DD date"))
			return
		}
	}

	conversion, err := h.converter.Convert(amount, req.FromCurrency, req.ToCurrency, asOf, uuid.New().String())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, conversion)
}
