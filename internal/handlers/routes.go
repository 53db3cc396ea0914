package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farukkamcici/ibb-transport-sub000/internal/geo"
	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
)

// RouteCache defines the route topology and polyline operations the map needs
type RouteCache interface {
	EnsureTopology(ctx context.Context)
	GetPolyline(ctx context.Context, line, direction string) []models.LatLng
	GetRouteStops(line, direction string) []models.Stop
	GetDirectionInfo(line string) map[string]models.DirectionInfo
	GetAvailableDirections(line string) []string
}

// RouteHandler handles HTTP requests for line geometry and stops
type RouteHandler struct {
	cache RouteCache
}

// NewRouteHandler creates a new handler backed by the given cache
func NewRouteHandler(cache RouteCache) *RouteHandler {
	return &RouteHandler{cache: cache}
}

// PolylineResponse is the JSON response for GET /api/lines/{line}/polyline
type PolylineResponse struct {
	Line         string          `json:"line"`
	Direction    string          `json:"direction"`
	Color        string          `json:"color"`
	Coordinates  []models.LatLng `json:"coordinates"`
	Count        int             `json:"count"`
	LengthMeters float64         `json:"lengthMeters"`
}

// StopsResponse is the JSON response for GET /api/lines/{line}/stops
type StopsResponse struct {
	Line      string        `json:"line"`
	Direction string        `json:"direction"`
	Stops     []models.Stop `json:"stops"`
	Count     int           `json:"count"`
}

// DirectionsResponse is the JSON response for GET /api/lines/{line}/directions
type DirectionsResponse struct {
	Line       string                          `json:"line"`
	Directions []string                        `json:"directions"`
	Info       map[string]models.DirectionInfo `json:"info"`
}

func direction(r *http.Request) string {
	if d := r.URL.Query().Get("direction"); d != "" {
		return d
	}
	return models.DirectionOutbound
}

// GetPolyline handles GET /api/lines/{line}/polyline
// Always answers 200; a line without geometry or stops yields an empty polyline.
func (h *RouteHandler) GetPolyline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	line := chi.URLParam(r, "line")
	dir := direction(r)

	h.cache.EnsureTopology(ctx)
	coords := h.cache.GetPolyline(ctx, line, dir)

	response := PolylineResponse{
		Line:         line,
		Direction:    dir,
		Color:        models.LineColor(line),
		Coordinates:  coords,
		Count:        len(coords),
		LengthMeters: geo.LineLength(coords),
	}

	w.Header().Set("Content-Type", "application/json")
	if len(coords) > 0 {
		// Geometry only changes with a timetable release
		w.Header().Set("Cache-Control", "public, max-age=3600, stale-while-revalidate=600")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetStops handles GET /api/lines/{line}/stops
func (h *RouteHandler) GetStops(w http.ResponseWriter, r *http.Request) {
	line := chi.URLParam(r, "line")
	dir := direction(r)

	h.cache.EnsureTopology(r.Context())
	stops := h.cache.GetRouteStops(line, dir)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(StopsResponse{
		Line:      line,
		Direction: dir,
		Stops:     stops,
		Count:     len(stops),
	})
}

// GetDirections handles GET /api/lines/{line}/directions
func (h *RouteHandler) GetDirections(w http.ResponseWriter, r *http.Request) {
	line := chi.URLParam(r, "line")

	h.cache.EnsureTopology(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(DirectionsResponse{
		Line:       line,
		Directions: h.cache.GetAvailableDirections(line),
		Info:       h.cache.GetDirectionInfo(line),
	})
}
