// Package config provides configuration management functionality.
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
	LogLevel string
	Port     int
	DevMode  bool

	MonteCarlo MonteCarloConfig
	Yield      YieldConfig
	Curve      CurveConfig
}

// MonteCarloConfig holds defaults for simulation-based VaR and stress tests
type MonteCarloConfig struct {
	Simulations int
	Workers     int    // 0 = one per logical CPU
	Seed        uint64 // 0 = seeded from the clock at request time
	Timeout     time.Duration
}

// YieldConfig holds the Newton-Raphson solver defaults
type YieldConfig struct {
	Tolerance     float64
	MaxIterations int
}

// CurveConfig holds curve construction settings
type CurveConfig struct {
	BootstrapMethod    string
	CachePurgeSchedule string // cron spec; empty disables purging
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	seed, err := getEnvAsUint64("MC_SEED", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		MonteCarlo: MonteCarloConfig{
			Simulations: getEnvAsInt("MC_SIMULATIONS", 10000),
			Workers:     getEnvAsInt("MC_WORKERS", 0),
			Seed:        seed,
			Timeout:     getEnvAsDuration("MC_TIMEOUT", 30*time.Second),
		},
		Yield: YieldConfig{
			Tolerance:     getEnvAsFloat("YTM_TOLERANCE", 1e-4),
			MaxIterations: getEnvAsInt("YTM_MAX_ITERATIONS", 100),
		},
		Curve: CurveConfig{
			BootstrapMethod:    getEnv("CURVE_BOOTSTRAP_METHOD", "iterative"),
			CachePurgeSchedule: getEnv("CURVE_CACHE_PURGE_SCHEDULE", "@hourly"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values no component could run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.MonteCarlo.Simulations <= 0 {
		return fmt.Errorf("MC_SIMULATIONS must be positive, got %d", c.MonteCarlo.Simulations)
	}
	if c.MonteCarlo.Workers < 0 {
		return fmt.Errorf("MC_WORKERS must be non-negative, got %d", c.MonteCarlo.Workers)
	}
	if c.MonteCarlo.Timeout <= 0 {
		return fmt.Errorf("MC_TIMEOUT must be positive, got %s", c.MonteCarlo.Timeout)
	}
	if !(c.Yield.Tolerance > 0) {
		return fmt.Errorf("YTM_TOLERANCE must be positive, got %g", c.Yield.Tolerance)
	}
	if c.Yield.MaxIterations <= 0 {
		return fmt.Errorf("YTM_MAX_ITERATIONS must be positive, got %d", c.Yield.MaxIterations)
	}
	switch c.Curve.BootstrapMethod {
	case "iterative", "simplified":
	default:
		return fmt.Errorf("invalid CURVE_BOOTSTRAP_METHOD %q", c.Curve.BootstrapMethod)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvAsUint64 fails on malformed input rather than defaulting
func getEnvAsUint64(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	u, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return u, nil
}
