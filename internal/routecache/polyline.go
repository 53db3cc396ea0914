package routecache

import (
	"context"
	"slices"

	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
)

// GetPolyline resolves a line and direction into drawable coordinates.
//
// Cached polylines are returned without a network call. Concurrent misses for
// the same key share one fetch. When the API has no geometry for the direction
// the stop coordinates are used instead and cached; when the fetch itself
// fails the stop coordinates are returned but not cached, so a later call
// retries the network. An empty result means topology is not loaded, the
// last load failed, or the line has no usable stops. Nothing is fetched while
// the topology is in a failed state.
func (c *Cache) GetPolyline(ctx context.Context, line, direction string) []models.LatLng {
	if direction == "" {
		direction = models.DirectionOutbound
	}
	if !c.usable() {
		return []models.LatLng{}
	}

	key := polylineKey(line, direction)
	if coords, ok := c.cachedPolyline(key); ok {
		c.hits.Add(ctx, 1)
		return coords
	}
	c.misses.Add(ctx, 1)

	// The fetch outlives a cancelled caller so that the other waiters and the
	// cache still receive its result.
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := c.inflight.Do(key, func() (interface{}, error) {
		if coords, ok := c.cachedPolyline(key); ok {
			return coords, nil
		}
		return c.fetchPolyline(fetchCtx, key, line, direction), nil
	})

	return slices.Clone(v.([]models.LatLng))
}

// usable reports whether topology loaded successfully
func (c *Cache) usable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topologyLoadedLocked() && c.loadErr == nil
}

func (c *Cache) cachedPolyline(key string) ([]models.LatLng, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coords, ok := c.polylines.get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(coords), true
}

func (c *Cache) fetchPolyline(ctx context.Context, key, line, direction string) []models.LatLng {
	c.mu.Lock()
	c.inflightCount++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inflightCount--
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	coords, err := c.fetcher.RouteGeometry(ctx, line, direction)
	if err != nil {
		c.logger.Warn("Failed to fetch route geometry, using stop coordinates",
			"line", line, "direction", direction, "error", err)
		c.fallbacks.Add(ctx, 1)
		return c.stopCoordinates(line, direction)
	}

	if len(coords) == 0 {
		c.logger.Debug("No route geometry for direction, caching stop coordinates",
			"line", line, "direction", direction)
		c.fallbacks.Add(ctx, 1)
		coords = c.stopCoordinates(line, direction)
		c.store(ctx, key, coords, true)
		return coords
	}

	c.store(ctx, key, coords, false)
	return coords
}

func (c *Cache) store(ctx context.Context, key string, coords []models.LatLng, derived bool) {
	c.mu.Lock()
	evicted, didEvict := c.polylines.put(key, coords, derived)
	c.mu.Unlock()

	if didEvict {
		c.evictions.Add(ctx, 1)
		c.logger.Debug("Evicted polyline", "key", evicted)
	}
}

// stopCoordinates derives a polyline from the ordered stops of a route
func (c *Cache) stopCoordinates(line, direction string) []models.LatLng {
	stops := c.GetRouteStops(line, direction)
	coords := make([]models.LatLng, 0, len(stops))
	for _, s := range stops {
		coords = append(coords, models.LatLng{s.Lat, s.Lng})
	}
	return coords
}

func polylineKey(line, direction string) string {
	return line + "-" + direction
}
