package criteria

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/server/respond"
)

// Handlers provides HTTP handlers for the criteria module
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new criteria handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "criteria").Logger(),
	}
}

// Routes returns the criteria routes
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{versionID}", h.HandleGet)
	r.Delete("/{versionID}", h.HandleDelete)
	r.Post("/{versionID}/copy", h.HandleCopy)
	return r
}

// HandleList handles GET /api/criteria
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	versions, err := h.service.ListVersions(auth.UserID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if versions == nil {
		versions = []Version{}
	}
	respond.JSON(w, http.StatusOK, versions)
}

// HandleCreate handles POST /api/criteria
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateVersionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	version, err := h.service.CreateVersion(auth.UserID(r.Context()), input)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, version)
}

// HandleGet handles GET /api/criteria/{versionID}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	version, err := h.service.GetVersion(auth.UserID(r.Context()), chi.URLParam(r, "versionID"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, version)
}

// HandleDelete handles DELETE /api/criteria/{versionID}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteVersion(auth.UserID(r.Context()), chi.URLParam(r, "versionID"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type copyRequest struct {
	Name string `json:"name"`
}

// HandleCopy handles POST /api/criteria/{versionID}/copy
func (h *Handlers) HandleCopy(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	version, err := h.service.CopyVersion(auth.UserID(r.Context()), chi.URLParam(r, "versionID"), req.Name)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, version)
}
