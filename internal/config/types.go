package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0,lte=65535"`
	AllowedOrigins []string `yaml:"allowedOrigins" validate:"dive,required"`
	StaticDir      string   `yaml:"staticDir"`
}

// ForecastConfig contains the remote forecasting API endpoints
type ForecastConfig struct {
	BaseURL   string        `yaml:"baseURL" validate:"required,url"`
	StaticURL string        `yaml:"staticURL" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
}

// StorageConfig selects and configures the persistent schedule store
type StorageConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=memory sqlite postgres redis"`
	SQLitePath    string `yaml:"sqlitePath" validate:"required_if=Backend sqlite"`
	PostgresURL   string `yaml:"postgresURL" validate:"required_if=Backend postgres"`
	RedisAddr     string `yaml:"redisAddr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB" validate:"gte=0"`
	QuotaBytes    int64  `yaml:"quotaBytes" validate:"gte=0"` // 0 disables the quota
}

// CacheConfig contains caching behavior knobs
type CacheConfig struct {
	PolylineCapacity int           `yaml:"polylineCapacity" validate:"gt=0"`
	ScheduleVersion  string        `yaml:"scheduleVersion" validate:"required"`
	Timezone         string        `yaml:"timezone" validate:"required"`
	RefreshTimeout   time.Duration `yaml:"refreshTimeout" validate:"gt=0"`
}

// TelemetryConfig contains tracing, metrics and profiling settings
type TelemetryConfig struct {
	OTelEnabled      bool   `yaml:"otelEnabled"`
	OTLPEndpoint     string `yaml:"otlpEndpoint" validate:"required_if=OTelEnabled true"`
	ServiceName      string `yaml:"serviceName" validate:"required"`
	ProfilingEnabled bool   `yaml:"profilingEnabled"`
	PyroscopeURL     string `yaml:"pyroscopeURL" validate:"omitempty,url"`
}

// Config is the root configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" validate:"required"`
	Forecast  ForecastConfig  `yaml:"forecast" validate:"required"`
	Storage   StorageConfig   `yaml:"storage" validate:"required"`
	Cache     CacheConfig     `yaml:"cache" validate:"required"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"logLevel" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string          `yaml:"logFormat" validate:"omitempty,oneof=text json"`
}
