package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath      string
	MarketDataURL     string
	MarketDataAPIKey  string
	JWTSecret         string
	BaseCurrency      string
	LogLevel          string
	Port              int
	DevMode           bool
	TokenTTL          time.Duration
	RecommendationTTL time.Duration
	RateFreshness     time.Duration // rates older than this are flagged stale
	MaxCriteriaSets   int           // per-user cap on criteria versions
	BcryptCost        int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvAsInt("PORT", 8080),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		DatabasePath:      getEnv("DATABASE_PATH", "./data/folioplan.db"),
		MarketDataURL:     getEnv("MARKET_DATA_URL", "https://query1.finance.yahoo.com"),
		MarketDataAPIKey:  getEnv("MARKET_DATA_API_KEY", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		BaseCurrency:      getEnv("BASE_CURRENCY", "EUR"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TokenTTL:          getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		RecommendationTTL: getEnvAsDuration("RECOMMENDATION_TTL", 24*time.Hour),
		RateFreshness:     getEnvAsDuration("RATE_FRESHNESS", 72*time.Hour),
		MaxCriteriaSets:   getEnvAsInt("MAX_CRITERIA_SETS", 20),
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if c.JWTSecret == "" && !c.DevMode {
		return fmt.Errorf("JWT_SECRET is required outside dev mode")
	}

	if c.RecommendationTTL <= 0 {
		return fmt.Errorf("RECOMMENDATION_TTL must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
