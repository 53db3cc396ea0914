package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farukkamcici/ibb-transport-sub000/internal/schedule"
)

// ScheduleService defines the schedule lookup used by the station panel
type ScheduleService interface {
	Lookup(ctx context.Context, stationID, directionID string) (schedule.Result, error)
}

// ScheduleHandler handles HTTP requests for metro station schedules
type ScheduleHandler struct {
	service ScheduleService
	logger  *slog.Logger
}

// NewScheduleHandler creates a new handler with the given service.
// A nil logger falls back to slog.Default.
func NewScheduleHandler(service ScheduleService, logger *slog.Logger) *ScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleHandler{service: service, logger: logger}
}

// GetSchedule handles GET /api/metro/schedule/{stationId}/{directionId}
// The upstream payload is passed through untouched. X-Cache tells whether it
// was served from the schedule cache. Any lookup failure is a 404.
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")
	directionID := chi.URLParam(r, "directionId")

	result, err := h.service.Lookup(r.Context(), stationID, directionID)
	if err != nil {
		h.logger.Debug("No schedule available", "station", stationID, "direction", directionID, "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: schedule.ErrNoSchedule.Error(),
			Details: map[string]interface{}{
				"stationId":   stationID,
				"directionId": directionID,
			},
		})
		return
	}

	cacheStatus := "MISS"
	if result.FromCache {
		cacheStatus = "HIT"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheStatus)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}
