package telemetry

import (
	"log/slog"

	"github.com/grafana/pyroscope-go"

	"github.com/farukkamcici/ibb-transport-sub000/internal/config"
)

// InitProfiling starts continuous profiling when enabled
func InitProfiling(cfg config.TelemetryConfig) (func(), error) {
	if !cfg.ProfilingEnabled {
		slog.Debug("Pyroscope profiling is disabled")
		return func() {}, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.PyroscopeURL,
		Logger:          pyroscope.StandardLogger,
		Tags: map[string]string{
			"service": cfg.ServiceName,
			"version": serviceVersion,
		},
	})
	if err != nil {
		slog.Warn("Failed to start Pyroscope profiler", "error", err)
		return func() {}, nil
	}

	slog.Debug("Pyroscope profiling started", "server", cfg.PyroscopeURL)

	return func() {
		if err := profiler.Stop(); err != nil {
			slog.Error("Error stopping Pyroscope profiler", "error", err)
		}
	}, nil
}
