package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Matching MatchingConfig
	Policy   PolicyConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string // JWT signing secret
}

// MatchingConfig tunes the courier matching engine.
type MatchingConfig struct {
	RadiusMeters         float64 // candidate search radius around the pickup point
	MaxCandidates        int     // rescue-request fan-out cap per dispatch
	FallbackDelaySeconds int     // how long an order may sit awaiting_courier before self-pickup fallback
	SweepIntervalSeconds int     // fallback sweeper tick
	FallbackOnEmpty      bool    // whether the fallback clock runs when no candidate qualified
	MaxMatchAttempts     int64   // courier drops before the order is hard-cancelled
}

// PolicyConfig tunes the cancellation gates and transaction retry.
type PolicyConfig struct {
	CancelLimit        int64 // max cancellations per actor per window
	CancelWindowHours  int   // trailing window for the rate gate
	BuyerCutoffMinutes int   // buyers may not cancel this close to pickup
	TxMaxAttempts      int   // bounded retry for conflicting transactions
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := LoadWithDefaults()
	if err != nil {
		return nil, err
	}
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	radius, err := getEnvInt("MATCH_RADIUS_METERS", 7000)
	if err != nil {
		return nil, err
	}
	maxCandidates, err := getEnvInt("MATCH_MAX_CANDIDATES", 10)
	if err != nil {
		return nil, err
	}
	fallbackDelay, err := getEnvInt("MATCH_FALLBACK_DELAY_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := getEnvInt("MATCH_SWEEP_INTERVAL_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := getEnvInt("MATCH_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	cancelLimit, err := getEnvInt("CANCEL_LIMIT", 3)
	if err != nil {
		return nil, err
	}
	cancelWindow, err := getEnvInt("CANCEL_WINDOW_HOURS", 24)
	if err != nil {
		return nil, err
	}
	buyerCutoff, err := getEnvInt("BUYER_CANCEL_CUTOFF_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	txAttempts, err := getEnvInt("TX_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "app.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		},
		Matching: MatchingConfig{
			RadiusMeters:         float64(radius),
			MaxCandidates:        maxCandidates,
			FallbackDelaySeconds: fallbackDelay,
			SweepIntervalSeconds: sweepInterval,
			FallbackOnEmpty:      getEnv("MATCH_FALLBACK_ON_EMPTY", "true") == "true",
			MaxMatchAttempts:     int64(maxAttempts),
		},
		Policy: PolicyConfig{
			CancelLimit:        int64(cancelLimit),
			CancelWindowHours:  cancelWindow,
			BuyerCutoffMinutes: buyerCutoff,
			TxMaxAttempts:      txAttempts,
		},
	}
	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, MatchRadius: %.0fm, Auth: *** (masked) ***}", c.Database.Path, c.Matching.RadiusMeters)
}
