package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "CATALOGUE_PATH", "AVAILABILITY_URL", "CACHE_TTL_SECONDS",
		"HTTP_TIMEOUT_SECONDS", "UPSTREAM_RETRIES", "UPSTREAM_RPS", "REDIS_URL",
		"DEFAULT_MAX_DISTANCE_KM",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "data/HDBCarparkInformation.csv", cfg.CataloguePath)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.UpstreamRetries)
	assert.Equal(t, 1.0, cfg.UpstreamRPS)
	assert.Empty(t, cfg.RedisURL)
	assert.Nil(t, cfg.DefaultMaxDistanceKm)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "production")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("UPSTREAM_RETRIES", "5")
	t.Setenv("UPSTREAM_RPS", "2.5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DEFAULT_MAX_DISTANCE_KM", "2")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.UpstreamRetries)
	assert.Equal(t, 2.5, cfg.UpstreamRPS)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.NotNil(t, cfg.DefaultMaxDistanceKm)
	assert.Equal(t, 2.0, *cfg.DefaultMaxDistanceKm)
	require.NoError(t, cfg.Validate())
}

func TestLoadIgnoresUnparseableNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL_SECONDS", "soon")
	t.Setenv("DEFAULT_MAX_DISTANCE_KM", "far")

	cfg := Load()
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Nil(t, cfg.DefaultMaxDistanceKm)
}

func TestValidate(t *testing.T) {
	negative := -1.0

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "Port"},
		{"bad env", func(c *Config) { c.Env = "moon" }, "Env"},
		{"bad url", func(c *Config) { c.AvailabilityURL = "not a url" }, "AvailabilityURL"},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }, "CacheTTL"},
		{"too many retries", func(c *Config) { c.UpstreamRetries = 50 }, "UpstreamRetries"},
		{"negative distance", func(c *Config) { c.DefaultMaxDistanceKm = &negative }, "DefaultMaxDistanceKm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
