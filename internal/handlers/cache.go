package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/farukkamcici/ibb-transport-sub000/internal/schedulecache"
)

// ScheduleCacheAdmin defines the maintenance operations on the schedule cache
type ScheduleCacheAdmin interface {
	Stats(ctx context.Context) schedulecache.Stats
	Cleanup(ctx context.Context) int
	Clear(ctx context.Context) int
}

// CacheHandler exposes schedule cache maintenance over HTTP
type CacheHandler struct {
	cache ScheduleCacheAdmin
}

func NewCacheHandler(cache ScheduleCacheAdmin) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// RemovedResponse reports how many entries an operation deleted
type RemovedResponse struct {
	Removed int `json:"removed"`
}

// GetStats handles GET /api/cache/metro/stats
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.cache.Stats(r.Context()))
}

// Cleanup handles POST /api/cache/metro/cleanup
func (h *CacheHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.Cleanup(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(RemovedResponse{Removed: removed})
}

// Clear handles DELETE /api/cache/metro
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.Clear(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(RemovedResponse{Removed: removed})
}
