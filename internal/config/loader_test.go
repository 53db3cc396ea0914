package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("POLYLINE_CACHE_CAPACITY", "25")
	t.Setenv("FORECAST_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OTEL_ENABLED", "yes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 25, cfg.Cache.PolylineCapacity)
	assert.Equal(t, 3*time.Second, cfg.Forecast.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Telemetry.OTelEnabled)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
server:
  port: 7070
forecast:
  baseURL: https://api.example.com/v1
  timeout: 30s
storage:
  backend: memory
cache:
  scheduleVersion: "2.0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "https://api.example.com/v1", cfg.Forecast.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Forecast.Timeout)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "2.0", cfg.Cache.ScheduleVersion)
	// Keys missing from the file keep their defaults
	assert.Equal(t, 100, cfg.Cache.PolylineCapacity)
	assert.Equal(t, "Europe/Istanbul", cfg.Cache.Timezone)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }},
		{"postgres without url", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"redis without addr", func(c *Config) { c.Storage.Backend = "redis" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad forecast url", func(c *Config) { c.Forecast.BaseURL = "not a url" }},
		{"zero capacity", func(c *Config) { c.Cache.PolylineCapacity = 0 }},
		{"empty version", func(c *Config) { c.Cache.ScheduleVersion = "" }},
		{"unknown timezone", func(c *Config) { c.Cache.Timezone = "Mars/Olympus" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"otel without endpoint", func(c *Config) {
			c.Telemetry.OTelEnabled = true
			c.Telemetry.OTLPEndpoint = ""
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	loc := cfg.Location()
	assert.Equal(t, "Europe/Istanbul", loc.String())

	cfg.Cache.Timezone = "Mars/Olympus"
	assert.Equal(t, time.Local, cfg.Location())
}
