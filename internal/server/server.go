// Package server provides the HTTP server and routing for folioplan.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/folioplan/internal/database"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/modules/comparison"
	"github.com/aristath/folioplan/internal/modules/criteria"
	"github.com/aristath/folioplan/internal/modules/export"
	"github.com/aristath/folioplan/internal/modules/portfolio"
	"github.com/aristath/folioplan/internal/modules/rates"
	"github.com/aristath/folioplan/internal/modules/recommendations"
	"github.com/aristath/folioplan/internal/modules/scoring"
)

// Handlers bundles every module's HTTP handlers.
type Handlers struct {
	Auth            *auth.Handlers
	Criteria        *criteria.Handlers
	Comparison      *comparison.Handlers
	Portfolio       *portfolio.Handlers
	Rates           *rates.Handlers
	Scoring         *scoring.Handlers
	Recommendations *recommendations.Handlers
	Export          *export.Handlers
}

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	DB       *database.DB
	Auth     *auth.Service
	Handlers Handlers
	DevMode  bool
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *database.DB
	auth     *auth.Service
	handlers Handlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		auth:     cfg.Auth,
		handlers: cfg.Handlers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Mount("/auth", s.handlers.Auth.PublicRoutes())

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth)

			r.Get("/auth/me", s.handlers.Auth.HandleMe)

			r.Route("/criteria", func(r chi.Router) {
				// registered before the mount so /{versionID} does not swallow it
				r.Post("/compare", s.handlers.Comparison.HandleCompare)
				r.Mount("/", s.handlers.Criteria.Routes())
			})

			r.Mount("/portfolio", s.handlers.Portfolio.Routes())
			r.Mount("/rates", s.handlers.Rates.Routes())
			r.Mount("/scores", s.handlers.Scoring.Routes())
			r.Mount("/recommendations", s.handlers.Recommendations.Routes())
			r.Mount("/export", s.handlers.Export.Routes())

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.handleSystemStatus)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router returns the router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}
