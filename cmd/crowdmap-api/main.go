package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/farukkamcici/ibb-transport-sub000/internal/config"
	"github.com/farukkamcici/ibb-transport-sub000/internal/forecast"
	"github.com/farukkamcici/ibb-transport-sub000/internal/handlers"
	"github.com/farukkamcici/ibb-transport-sub000/internal/kvstore"
	"github.com/farukkamcici/ibb-transport-sub000/internal/logging"
	"github.com/farukkamcici/ibb-transport-sub000/internal/routecache"
	"github.com/farukkamcici/ibb-transport-sub000/internal/schedule"
	"github.com/farukkamcici/ibb-transport-sub000/internal/schedulecache"
	"github.com/farukkamcici/ibb-transport-sub000/internal/telemetry"
)

// cleanupInterval is how often expired schedule entries are swept outside of writes
const cleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting crowdmap API",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"forecast_api", cfg.Forecast.BaseURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	}
	defer shutdownTracing()

	shutdownMetrics, err := telemetry.InitMetrics(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}
	defer shutdownMetrics()

	stopProfiling, err := telemetry.InitProfiling(cfg.Telemetry)
	if err != nil {
		logger.Warn("Profiling disabled", "error", err)
	}
	defer stopProfiling()

	// Schedule store
	store, err := kvstore.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to open schedule store", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Caches
	client := forecast.NewClient(cfg.Forecast.BaseURL, cfg.Forecast.StaticURL, cfg.Forecast.Timeout)

	routes := routecache.New(client,
		routecache.WithCapacity(cfg.Cache.PolylineCapacity),
		routecache.WithFetchTimeout(cfg.Forecast.Timeout),
		routecache.WithLogger(logger.With("component", "routecache")),
	)

	schedules := schedulecache.New(store,
		schedulecache.WithVersion(cfg.Cache.ScheduleVersion),
		schedulecache.WithLocation(cfg.Location()),
		schedulecache.WithLogger(logger.With("component", "schedulecache")),
	)

	scheduleService := schedule.NewService(schedules, client,
		schedule.WithRefreshTimeout(cfg.Cache.RefreshTimeout),
		schedule.WithLogger(logger.With("component", "schedule")),
	)

	// Warm the topology so the first map request does not pay for it
	go routes.EnsureTopology(ctx)

	// Periodic sweep of expired schedule entries
	go func() {
		schedules.Cleanup(ctx)

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := schedules.Cleanup(ctx); removed > 0 {
					logger.Info("Swept expired schedule entries", "removed", removed)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	router := handlers.NewRouter(handlers.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
		Routes:         handlers.NewRouteHandler(routes),
		Schedule:       handlers.NewScheduleHandler(scheduleService, logger),
		Cache:          handlers.NewCacheHandler(schedules),
		Health:         handlers.NewHealthHandler(store, routes),
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           otelhttp.NewHandler(router, "crowdmap-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	// Let in-flight background refreshes write their results
	scheduleService.Wait()
	logger.Info("Goodbye!")
}
