package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/farukkamcici/ibb-transport-sub000/internal/routecache"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// TopologyStatus reports the state of the route cache
type TopologyStatus interface {
	Stats() routecache.Stats
}

// HealthHandler handles HTTP requests for service health
type HealthHandler struct {
	store  Pinger
	routes TopologyStatus
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, routes TopologyStatus) *HealthHandler {
	return &HealthHandler{store: store, routes: routes}
}

// HealthResponse is the JSON response for GET /health
type HealthResponse struct {
	Status    string           `json:"status"`
	Store     string           `json:"store"`
	Routes    routecache.Stats `json:"routes"`
	Timestamp time.Time        `json:"timestamp"`
	Error     string           `json:"error,omitempty"`
}

// GetHealth handles GET /health
// The schedule store must answer a ping. A failed topology load only marks
// the service degraded because polylines still fall back to empty results.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "ok",
		Store:     "connected",
		Routes:    h.routes.Stats(),
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		response.Status = "error"
		response.Store = "disconnected"
		response.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else if response.Routes.TopologyFailed {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// Healthz handles GET /healthz
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Ping handles GET /api/ping
func Ping(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}
