package routecache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
	"github.com/farukkamcici/ibb-transport-sub000/internal/telemetry"
)

const (
	// DefaultCapacity bounds the number of cached polylines
	DefaultCapacity = 100
	// DefaultFetchTimeout bounds a single topology or geometry fetch
	DefaultFetchTimeout = 15 * time.Second

	topologyKey     = "topology"
	unknownStopName = "Unknown Stop"
	meterName       = "routecache"
)

// Fetcher is the part of the forecasting API the cache depends on
type Fetcher interface {
	StopsGeometry(ctx context.Context) (map[string]models.Stop, error)
	LineRoutes(ctx context.Context) (models.Routes, error)
	RouteGeometry(ctx context.Context, line, direction string) ([]models.LatLng, error)
}

// Cache serves stop topology and route polylines to map consumers
type Cache struct {
	fetcher      Fetcher
	logger       *slog.Logger
	fetchTimeout time.Duration

	mu        sync.RWMutex // protects stops, routes, loadErr and polylines
	stops     map[string]models.Stop
	routes    models.Routes
	loadErr   error
	polylines *fifo

	topologyLoads singleflight.Group
	inflight      singleflight.Group
	inflightCount int64 // guarded by mu

	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	fallbacks metric.Int64Counter
}

// Option configures a Cache
type Option func(*Cache)

// WithCapacity overrides the polyline cache bound
func WithCapacity(capacity int) Option {
	return func(c *Cache) {
		if capacity > 0 {
			c.polylines = newFIFO(capacity)
		}
	}
}

// WithLogger sets the logger used for degraded-path diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFetchTimeout bounds each network fetch issued by the cache
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Cache) {
		if timeout > 0 {
			c.fetchTimeout = timeout
		}
	}
}

// New creates an empty cache. Topology is loaded lazily by EnsureTopology.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:      fetcher,
		logger:       slog.Default(),
		fetchTimeout: DefaultFetchTimeout,
		polylines:    newFIFO(DefaultCapacity),
		hits:         telemetry.Counter(meterName, "routecache.polyline.hits", "Polyline lookups served from cache"),
		misses:       telemetry.Counter(meterName, "routecache.polyline.misses", "Polyline lookups that required a fetch"),
		evictions:    telemetry.Counter(meterName, "routecache.polyline.evictions", "Polylines evicted by the capacity bound"),
		fallbacks:    telemetry.Counter(meterName, "routecache.polyline.fallbacks", "Polylines derived from stop coordinates"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureTopology loads stops and line routes once.
//
// Concurrent callers wait for the same load. On failure both tables become
// empty and Failed reports true; the failure is not returned. The load runs
// detached from ctx cancellation so an abandoned request still populates the
// tables for everyone else.
func (c *Cache) EnsureTopology(ctx context.Context) {
	if c.Loaded() {
		return
	}

	c.topologyLoads.Do(topologyKey, func() (interface{}, error) {
		if c.Loaded() {
			return nil, nil
		}
		c.loadTopology(context.WithoutCancel(ctx))
		return nil, nil
	})
}

// Reload discards the topology tables and loads them again.
// Polylines fetched as route geometry are kept; those built from stop
// coordinates, or left empty, are dropped since they depend on the old tables.
func (c *Cache) Reload(ctx context.Context) {
	c.mu.Lock()
	c.stops = nil
	c.routes = nil
	c.loadErr = nil
	dropped := c.polylines.dropDerived()
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Debug("Dropped stop-derived polylines", "count", dropped)
	}

	c.EnsureTopology(ctx)
}

func (c *Cache) loadTopology(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	var stops map[string]models.Stop
	var routes models.Routes

	// Both static resources are fetched concurrently and awaited jointly
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stops, err = c.fetcher.StopsGeometry(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		routes, err = c.fetcher.LineRoutes(gctx)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Error("Failed to load route topology", "error", err)
		c.stops = map[string]models.Stop{}
		c.routes = models.Routes{}
		c.loadErr = err
		return
	}

	if stops == nil {
		stops = map[string]models.Stop{}
	}
	if routes == nil {
		routes = models.Routes{}
	}
	c.stops = stops
	c.routes = routes
	c.loadErr = nil
	c.logger.Info("Route topology loaded", "stops", len(stops), "lines", len(routes))
}

// Loaded reports whether topology tables are populated (possibly empty after a failure)
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topologyLoadedLocked()
}

// Failed reports whether the last topology load failed
func (c *Cache) Failed() bool {
	return c.Err() != nil
}

// Err returns the error of the last topology load, if any
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

// Stats describes the cache for health reporting
type Stats struct {
	TopologyLoaded bool   `json:"topologyLoaded"`
	TopologyFailed bool   `json:"topologyFailed"`
	TopologyError  string `json:"topologyError,omitempty"`
	Stops          int    `json:"stops"`
	Lines          int    `json:"lines"`
	Polylines      int    `json:"polylines"`
	Capacity       int    `json:"capacity"`
	InFlight       int64  `json:"inFlight"`
}

// Stats returns a snapshot of cache sizes and topology state
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		TopologyLoaded: c.topologyLoadedLocked(),
		TopologyFailed: c.loadErr != nil,
		Stops:          len(c.stops),
		Lines:          len(c.routes),
		Polylines:      c.polylines.len(),
		Capacity:       c.polylines.capacity,
		InFlight:       c.inflightCount,
	}
	if c.loadErr != nil {
		s.TopologyError = c.loadErr.Error()
	}
	return s
}

func (c *Cache) topologyLoadedLocked() bool {
	return c.stops != nil && c.routes != nil
}
