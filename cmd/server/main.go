// Package main is the entry point for folioplan, a personal investment
// portfolio planning service. It wires configuration, storage, the market
// data client, every module's repository/service/handler stack, the
// background scheduler and the HTTP server, then waits for a shutdown
// signal.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/aristath/folioplan/internal/clients/marketdata"
	"github.com/aristath/folioplan/internal/config"
	"github.com/aristath/folioplan/internal/database"
	"github.com/aristath/folioplan/internal/events"
	"github.com/aristath/folioplan/internal/modules/auth"
	"github.com/aristath/folioplan/internal/modules/comparison"
	"github.com/aristath/folioplan/internal/modules/criteria"
	"github.com/aristath/folioplan/internal/modules/export"
	"github.com/aristath/folioplan/internal/modules/fundamentals"
	"github.com/aristath/folioplan/internal/modules/portfolio"
	"github.com/aristath/folioplan/internal/modules/rates"
	"github.com/aristath/folioplan/internal/modules/recommendations"
	"github.com/aristath/folioplan/internal/modules/scoring"
	"github.com/aristath/folioplan/internal/scheduler"
	"github.com/aristath/folioplan/internal/server"
	"github.com/aristath/folioplan/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting folioplan")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open database")
	}
	defer db.Close()

	// Schema order matters: score_history references criteria_versions, and
	// most tables reference users.
	if err := db.Migrate(
		auth.InitSchema,
		criteria.InitSchema,
		fundamentals.InitSchema,
		rates.InitSchema,
		portfolio.InitSchema,
		scoring.InitSchema,
		recommendations.InitSchema,
	); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	eventManager := events.NewManager(log)
	marketClient := marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataAPIKey, log)

	// Repositories
	userRepo := auth.NewRepository(db.Conn(), log)
	criteriaRepo := criteria.NewRepository(db.Conn(), log)
	fundamentalsRepo := fundamentals.NewRepository(db.Conn(), log)
	rateRepo := rates.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	scoringRepo := scoring.NewRepository(db.Conn(), log)
	recommendationRepo := recommendations.NewRepository(db.Conn(), log)

	// Services
	authService := auth.NewService(auth.ServiceConfig{
		Repo:       userRepo,
		Events:     eventManager,
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
		Log:        log,
	})

	criteriaService := criteria.NewService(criteria.ServiceConfig{
		Repo:        criteriaRepo,
		Events:      eventManager,
		MaxVersions: cfg.MaxCriteriaSets,
		Log:         log,
	})

	fundamentalsService := fundamentals.NewService(fundamentals.ServiceConfig{
		Repo:      fundamentalsRepo,
		Client:    marketClient,
		Freshness: cfg.RateFreshness,
		Log:       log,
	})

	converter := rates.NewConverter(rates.ConverterConfig{
		Repo:      rateRepo,
		Events:    eventManager,
		Freshness: cfg.RateFreshness,
		Log:       log,
	})

	portfolioService := portfolio.NewService(portfolio.ServiceConfig{
		Repo:      portfolioRepo,
		Converter: converter,
		Quotes:    marketClient,
		Log:       log,
	})

	scoringService := scoring.NewService(scoring.ServiceConfig{
		Repo:         scoringRepo,
		Criteria:     criteriaRepo,
		Fundamentals: fundamentalsService,
		Assets:       portfolioService,
		Events:       eventManager,
		Log:          log,
	})

	comparisonService := comparison.NewService(comparison.ServiceConfig{
		Versions:     criteriaService,
		Fundamentals: fundamentalsService,
		Assets:       portfolioService,
		Events:       eventManager,
		Log:          log,
	})

	recommendationService := recommendations.NewService(recommendations.ServiceConfig{
		Repo:      recommendationRepo,
		Portfolio: portfolioService,
		Scores:    scoringService,
		Converter: converter,
		Events:    eventManager,
		TTL:       cfg.RecommendationTTL,
		Log:       log,
	})

	exportService := export.NewService(export.ServiceConfig{
		Assets:      portfolioService,
		Scores:      scoringService,
		Investments: recommendationService,
		Log:         log,
	})

	// Handlers
	loginLimiter := auth.NewLoginLimiter(rate.Every(6*time.Second), 5)
	handlers := server.Handlers{
		Auth:            auth.NewHandlers(authService, loginLimiter, log),
		Criteria:        criteria.NewHandlers(criteriaService, log),
		Comparison:      comparison.NewHandlers(comparisonService, log),
		Portfolio:       portfolio.NewHandlers(portfolioService, userRepo, cfg.BaseCurrency, log),
		Rates:           rates.NewHandlers(converter, log),
		Scoring:         scoring.NewHandlers(scoringService, log),
		Recommendations: recommendations.NewHandlers(recommendationService, userRepo, cfg.BaseCurrency, log),
		Export:          export.NewHandlers(exportService, log),
	}

	// Background jobs
	sched := scheduler.New(log)

	dataRefresh := scheduler.NewDataRefreshJob(scheduler.DataRefreshConfig{
		Log:          log,
		Prices:       portfolioService,
		Fundamentals: fundamentalsService,
		Symbols:      portfolioRepo,
		RateFetcher:  marketClient,
		RateRepo:     rateRepo,
		Events:       eventManager,
	})
	if err := sched.AddJob("@hourly", dataRefresh); err != nil {
		log.Fatal().Err(err).Msg("Failed to register data refresh job")
	}

	cleanup := scheduler.NewCleanupJob(scheduler.CleanupConfig{
		Log:             log,
		Recommendations: recommendationService,
		Accounts:        userRepo,
	})
	if err := sched.AddJob("15 3 * * *", cleanup); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		DB:       db,
		Auth:     authService,
		Handlers: handlers,
		DevMode:  cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("folioplan stopped")
}
