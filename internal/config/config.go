// Package config loads and validates the engine configuration from the
// environment. Every threshold and interval the passes use lives here;
// nothing else reads os.Getenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	LogFormat   string

	// Worker pool and external lookups.
	Workers       int
	LookupTimeout time.Duration

	// Tier gates.
	Tier1EVThreshold   float64
	Tier2EVThreshold   float64
	Tier3EVThreshold   float64
	Tier3MinReputation float64
	Tier3MaxAge        time.Duration

	// Trending.
	TrendingSize int

	// Seed distribution.
	SeedRatio float64
	SeedFloor int
	SeedCap   int

	// Auditor.
	AuditWindow        time.Duration
	SpikeFactor        float64
	SpikeMinEV         float64
	AnonRatioThreshold float64
	AnonNegligibleAuth int64
	TimingMinEvents    int
	TimingCVThreshold  float64
	FreezeHighFlags    int64

	// Retention.
	EventRetention time.Duration

	// Pass intervals.
	ScoreInterval    time.Duration
	SeedInterval     time.Duration
	DecayInterval    time.Duration
	TrendingInterval time.Duration
	AuditInterval    time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		Workers:       getEnvInt("WORKERS", 8),
		LookupTimeout: getEnvDuration("LOOKUP_TIMEOUT", 5*time.Second),

		Tier1EVThreshold:   getEnvFloat("TIER1_EV_THRESHOLD", 5),
		Tier2EVThreshold:   getEnvFloat("TIER2_EV_THRESHOLD", 50),
		Tier3EVThreshold:   getEnvFloat("TIER3_EV_THRESHOLD", 150),
		Tier3MinReputation: getEnvFloat("TIER3_MIN_REPUTATION", 30),
		Tier3MaxAge:        getEnvDuration("TIER3_MAX_AGE", 48*time.Hour),

		TrendingSize: getEnvInt("TRENDING_SIZE", 50),

		SeedRatio: getEnvFloat("SEED_RATIO", 0.05),
		SeedFloor: getEnvInt("SEED_FLOOR", 10),
		SeedCap:   getEnvInt("SEED_CAP", 500),

		AuditWindow:        getEnvDuration("AUDIT_WINDOW", 24*time.Hour),
		SpikeFactor:        getEnvFloat("SPIKE_FACTOR", 2),
		SpikeMinEV:         getEnvFloat("SPIKE_MIN_EV", 0.01),
		AnonRatioThreshold: getEnvFloat("ANON_RATIO_THRESHOLD", 0.7),
		AnonNegligibleAuth: int64(getEnvInt("ANON_NEGLIGIBLE_AUTH", 5)),
		TimingMinEvents:    getEnvInt("TIMING_MIN_EVENTS", 10),
		TimingCVThreshold:  getEnvFloat("TIMING_CV_THRESHOLD", 0.15),
		FreezeHighFlags:    int64(getEnvInt("FREEZE_HIGH_FLAGS", 3)),

		EventRetention: getEnvDuration("EVENT_RETENTION", 90*24*time.Hour),

		ScoreInterval:    getEnvDuration("SCORE_INTERVAL", 15*time.Minute),
		SeedInterval:     getEnvDuration("SEED_INTERVAL", 30*time.Minute),
		DecayInterval:    getEnvDuration("DECAY_INTERVAL", time.Hour),
		TrendingInterval: getEnvDuration("TRENDING_INTERVAL", time.Hour),
		AuditInterval:    getEnvDuration("AUDIT_INTERVAL", 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("WORKERS must be at least 1")
	}
	if cfg.SeedRatio <= 0 || cfg.SeedRatio > 1 {
		return nil, fmt.Errorf("SEED_RATIO must be in (0, 1]")
	}
	if cfg.SeedFloor > cfg.SeedCap {
		return nil, fmt.Errorf("SEED_FLOOR (%d) must not exceed SEED_CAP (%d)", cfg.SeedFloor, cfg.SeedCap)
	}
	if cfg.TrendingSize < 1 {
		return nil, fmt.Errorf("TRENDING_SIZE must be at least 1")
	}
	if cfg.AnonRatioThreshold <= 0 || cfg.AnonRatioThreshold >= 1 {
		return nil, fmt.Errorf("ANON_RATIO_THRESHOLD must be in (0, 1)")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
