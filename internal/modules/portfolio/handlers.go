package portfolio

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/server/respond"
)

// Handlers provides HTTP handlers for the portfolio module
type Handlers struct {
	service      *Service
	users        *auth.Repository
	baseCurrency string
	log          zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance. baseCurrency is the
// fallback for users without one.
func NewHandlers(service *Service, users *auth.Repository, baseCurrency string, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:      service,
		users:        users,
		baseCurrency: baseCurrency,
		log:          log.With().Str("handler", "portfolio").Logger(),
	}
}

// Routes returns the portfolio routes
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleValuation)
	r.Get("/allocation", h.HandleAllocation)
	r.Get("/assets", h.HandleListAssets)
	r.Post("/assets", h.HandleAddAsset)
	r.Put("/assets/{assetID}", h.HandleUpdateAsset)
	r.Delete("/assets/{assetID}", h.HandleDeleteAsset)
	r.Get("/classes", h.HandleListClasses)
	r.Post("/classes", h.HandleCreateClass)
	r.Delete("/classes/{classID}", h.HandleDeleteClass)
	r.Post("/sync-prices", h.HandleSyncPrices)
	return r
}

// HandleValuation handles GET /api/portfolio
func (h *Handlers) HandleValuation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	valuation, err := h.service.Valuation(userID, h.userCurrency(userID), time.Now(), uuid.New().String())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, valuation)
}

// HandleAllocation handles GET /api/portfolio/allocation. It is the
// per-class slice of the valuation, for clients that only need the
// target-vs-actual view.
func (h *Handlers) HandleAllocation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	valuation, err := h.service.Valuation(userID, h.userCurrency(userID), time.Now(), uuid.New().String())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	classes := valuation.Classes
	if classes == nil {
		classes = []ClassAllocation{}
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"base_currency": valuation.BaseCurrency,
		"total_value":   valuation.TotalValue,
		"classes":       classes,
		"warnings":      valuation.Warnings,
	})
}

// HandleListAssets handles GET /api/portfolio/assets
func (h *Handlers) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(auth.UserID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if assets == nil {
		assets = []Asset{}
	}
	respond.JSON(w, http.StatusOK, assets)
}

// HandleAddAsset handles POST /api/portfolio/assets
func (h *Handlers) HandleAddAsset(w http.ResponseWriter, r *http.Request) {
	var input AssetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	asset, err := h.service.AddAsset(auth.UserID(r.Context()), input)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, asset)
}

// HandleUpdateAsset handles PUT /api/portfolio/assets/{assetID}
func (h *Handlers) HandleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var input AssetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	asset, err := h.service.UpdateAsset(auth.UserID(r.Context()), chi.URLParam(r, "assetID"), input)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, asset)
}

// HandleDeleteAsset handles DELETE /api/portfolio/assets/{assetID}
func (h *Handlers) HandleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAsset(auth.UserID(r.Context()), chi.URLParam(r, "assetID")); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleListClasses handles GET /api/portfolio/classes
func (h *Handlers) HandleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListClasses(auth.UserID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if classes == nil {
		classes = []AssetClass{}
	}
	respond.JSON(w, http.StatusOK, classes)
}

// HandleCreateClass handles POST /api/portfolio/classes
func (h *Handlers) HandleCreateClass(w http.ResponseWriter, r *http.Request) {
	var input ClassInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	class, err := h.service.CreateClass(auth.UserID(r.Context()), input)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, class)
}

// HandleDeleteClass handles DELETE /api/portfolio/classes/{classID}
func (h *Handlers) HandleDeleteClass(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteClass(auth.UserID(r.Context()), chi.URLParam(r, "classID")); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleSyncPrices handles POST /api/portfolio/sync-prices
func (h *Handlers) HandleSyncPrices(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.SyncPrices()
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (h *Handlers) userCurrency(userID string) string {
	if user, err := h.users.GetByID(userID); err == nil && user != nil && user.BaseCurrency != "" {
		return user.BaseCurrency
	}
	return h.baseCurrency
}
