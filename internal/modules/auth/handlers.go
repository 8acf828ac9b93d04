package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/domain"
	"github.com/aristath/folioplan/internal/server/respond"
)

// Handlers provides HTTP handlers for the auth module
type Handlers struct {
	service *Service
	limiter *LoginLimiter
	log     zerolog.Logger
}

// NewHandlers creates a new auth handlers instance
func NewHandlers(service *Service, limiter *LoginLimiter, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		limiter: limiter,
		log:     log.With().Str("handler", "auth").Logger(),
	}
}

// PublicRoutes returns the unauthenticated auth routes
func (h *Handlers) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.With(h.limiter.Middleware).Post("/login", h.HandleLogin)
	return r
}

// HandleRegister handles POST /api/auth/register
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	user, err := h.service.Register(input)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// HandleLogin handles POST /api/auth/login
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.log, domain.NewValidation("invalid request body"))
		return
	}

	token, user, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// HandleMe handles GET /api/auth/me
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.repo.GetByID(UserID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if user == nil {
		respond.Error(w, h.log, domain.NewNotFound("user not found"))
		return
	}

	respond.JSON(w, http.StatusOK, user)
}
