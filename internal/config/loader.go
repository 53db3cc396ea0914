package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // schedule day boundaries need Europe/Istanbul even on slim images

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8081,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Forecast: ForecastConfig{
			BaseURL:   "http://localhost:8000/api",
			StaticURL: "http://localhost:3000/data",
			Timeout:   15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    "sqlite",
			SQLitePath: "data/schedule-cache.db",
			QuotaBytes: 5 * 1024 * 1024, // same budget browsers give local storage
		},
		Cache: CacheConfig{
			PolylineCapacity: 100,
			ScheduleVersion:  "1.0",
			Timezone:         "Europe/Istanbul",
			RefreshTimeout:   20 * time.Second,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4318",
			ServiceName:  "crowdmap-api",
			PyroscopeURL: "http://localhost:4040",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads configuration from defaults, an optional YAML file and the environment
func Load() (*Config, error) {
	// Base .env first, then .env.local which overrides for local development
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML file into cfg. Keys absent from the file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks struct tags and that the configured timezone exists
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Cache.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: timezone %q: %w", cfg.Cache.Timezone, err)
	}
	return nil
}

// Location returns the timezone schedule days are computed in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Cache.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func applyEnv(cfg *Config) {
	// Server
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.StaticDir = getEnv("STATIC_DIR", cfg.Server.StaticDir)

	// Forecast API
	cfg.Forecast.BaseURL = getEnv("FORECAST_API_URL", cfg.Forecast.BaseURL)
	cfg.Forecast.StaticURL = getEnv("FORECAST_STATIC_URL", cfg.Forecast.StaticURL)
	cfg.Forecast.Timeout = getEnvDuration("FORECAST_TIMEOUT", cfg.Forecast.Timeout)

	// Storage
	cfg.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.SQLitePath = getEnv("SQLITE_DATABASE", cfg.Storage.SQLitePath)
	cfg.Storage.PostgresURL = getEnv("DATABASE_URL", cfg.Storage.PostgresURL)
	cfg.Storage.RedisAddr = getEnv("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Storage.RedisPassword)
	cfg.Storage.RedisDB = getEnvInt("REDIS_DB", cfg.Storage.RedisDB)
	cfg.Storage.QuotaBytes = int64(getEnvInt("STORAGE_QUOTA_BYTES", int(cfg.Storage.QuotaBytes)))

	// Caches
	cfg.Cache.PolylineCapacity = getEnvInt("POLYLINE_CACHE_CAPACITY", cfg.Cache.PolylineCapacity)
	cfg.Cache.ScheduleVersion = getEnv("SCHEDULE_CACHE_VERSION", cfg.Cache.ScheduleVersion)
	cfg.Cache.Timezone = getEnv("TIMEZONE", cfg.Cache.Timezone)
	cfg.Cache.RefreshTimeout = getEnvDuration("SCHEDULE_REFRESH_TIMEOUT", cfg.Cache.RefreshTimeout)

	// Telemetry
	cfg.Telemetry.OTelEnabled = getEnvBool("OTEL_ENABLED", cfg.Telemetry.OTelEnabled)
	cfg.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
	cfg.Telemetry.ProfilingEnabled = getEnvBool("PYROSCOPE_PROFILING_ENABLED", cfg.Telemetry.ProfilingEnabled)
	cfg.Telemetry.PyroscopeURL = getEnv("PYROSCOPE_SERVER_ADDRESS", cfg.Telemetry.PyroscopeURL)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
