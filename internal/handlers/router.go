package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the handlers and settings the router is built from
type RouterConfig struct {
	AllowedOrigins []string
	StaticDir      string

	Routes   *RouteHandler
	Schedule *ScheduleHandler
	Cache    *CacheHandler
	Health   *HealthHandler
}

// NewRouter wires every endpoint onto a chi router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Cache"},
		AllowCredentials: true,
	}))

	r.Get("/health", cfg.Health.GetHealth)
	r.Get("/healthz", Healthz)
	r.Get("/api/ping", Ping)

	// Route topology and geometry
	r.Get("/api/lines/{line}/polyline", cfg.Routes.GetPolyline)
	r.Get("/api/lines/{line}/stops", cfg.Routes.GetStops)
	r.Get("/api/lines/{line}/directions", cfg.Routes.GetDirections)

	// Metro schedules
	r.Get("/api/metro/schedule/{stationId}/{directionId}", cfg.Schedule.GetSchedule)

	// Schedule cache maintenance
	r.Get("/api/cache/metro/stats", cfg.Cache.GetStats)
	r.Post("/api/cache/metro/cleanup", cfg.Cache.Cleanup)
	r.Delete("/api/cache/metro", cfg.Cache.Clear)

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
