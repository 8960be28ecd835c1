package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/feedpulse")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 5.0, cfg.Tier1EVThreshold)
	assert.Equal(t, 150.0, cfg.Tier3EVThreshold)
	assert.Equal(t, 30.0, cfg.Tier3MinReputation)
	assert.Equal(t, 48*time.Hour, cfg.Tier3MaxAge)
	assert.Equal(t, 50, cfg.TrendingSize)
	assert.Equal(t, 0.05, cfg.SeedRatio)
	assert.Equal(t, 10, cfg.SeedFloor)
	assert.Equal(t, 15*time.Minute, cfg.ScoreInterval)
	assert.Equal(t, 24*time.Hour, cfg.AuditInterval)
	assert.Equal(t, int64(3), cfg.FreezeHighFlags)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKERS", "16")
	t.Setenv("TRENDING_SIZE", "25")
	t.Setenv("SEED_RATIO", "0.1")
	t.Setenv("SCORE_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, 25, cfg.TrendingSize)
	assert.Equal(t, 0.1, cfg.SeedRatio)
	assert.Equal(t, 5*time.Minute, cfg.ScoreInterval)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_MissingRedisURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/feedpulse")
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_URL")
}

func TestLoad_ValidatesBounds(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero workers", "WORKERS", "0"},
		{"seed ratio above one", "SEED_RATIO", "1.5"},
		{"zero trending size", "TRENDING_SIZE", "0"},
		{"anon ratio at one", "ANON_RATIO_THRESHOLD", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_FloorAboveCap(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SEED_FLOOR", "600")
	t.Setenv("SEED_CAP", "500")

	_, err := Load()
	assert.ErrorContains(t, err, "SEED_FLOOR")
}
