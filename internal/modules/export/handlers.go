package export

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/server/respond"
)

// Handlers provides HTTP handlers for the export module
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new export handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "export").Logger(),
	}
}

// Routes returns the export routes
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/portfolio", h.HandleExportPortfolio)
	return r
}

// HandleExportPortfolio handles GET /api/export/portfolio
func (h *Handlers) HandleExportPortfolio(w http.ResponseWriter, r *http.Request) {
	archive, err := h.service.BuildArchive(auth.UserID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	filename := fmt.Sprintf("portfolio-export-%s.zip", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
