// Package schedulecache keeps metro schedule responses for the current operating day.
//
// Entries are keyed by station, direction and operating day and expire at
// 04:00 local time on the day after they were written, before the next day's
// service starts. Storage failures never reach callers: reads degrade to a
// miss and writes are dropped after one cleanup-and-retry.
package schedulecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/metric"

	"github.com/farukkamcici/ibb-transport-sub000/internal/kvstore"
	"github.com/farukkamcici/ibb-transport-sub000/internal/telemetry"
)

const (
	// DefaultPrefix is shared by every schedule entry in the store
	DefaultPrefix = "metro_schedule_"
	// DefaultVersion is the entry schema version. Bumping it invalidates older entries.
	DefaultVersion = "1.0"

	// rolloverHour is when one operating day hands over to the next
	rolloverHour = 4
	dayLayout    = "2006-01-02"
	meterName    = "schedulecache"
)

// entry is the persisted form of a cached schedule
type entry struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  int64           `json:"cachedAt"`  // Unix milliseconds
	ExpiresAt int64           `json:"expiresAt"` // Unix milliseconds
	Version   string          `json:"version"`
}

// Cache is a day-scoped schedule cache over a kvstore.Store
type Cache struct {
	store    kvstore.Store
	prefix   string
	version  string
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger

	hits         metric.Int64Counter
	misses       metric.Int64Counter
	writeRetries metric.Int64Counter
	swept        metric.Int64Counter
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithVersion sets the schema version written to and required of entries
func WithVersion(version string) Option {
	return func(c *Cache) { c.version = version }
}

// WithPrefix sets the key prefix shared by all entries
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithLocation sets the time zone in which operating days and expiry are computed
func WithLocation(loc *time.Location) Option {
	return func(c *Cache) {
		if loc != nil {
			c.location = loc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a schedule cache over store
func New(store kvstore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:        store,
		prefix:       DefaultPrefix,
		version:      DefaultVersion,
		location:     time.Local,
		now:          time.Now,
		logger:       slog.Default(),
		hits:         telemetry.Counter(meterName, "schedulecache.hits", "Schedule reads served from cache"),
		misses:       telemetry.Counter(meterName, "schedulecache.misses", "Schedule reads with no valid entry"),
		writeRetries: telemetry.Counter(meterName, "schedulecache.quota_retries", "Writes retried after a quota error"),
		swept:        telemetry.Counter(meterName, "schedulecache.swept", "Invalid entries removed by cleanup"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the schema version the cache writes
func (c *Cache) Version() string {
	return c.version
}

// NextExpiry returns 04:00 local time on the calendar day after t
func (c *Cache) NextExpiry(t time.Time) time.Time {
	t = t.In(c.location)
	y, m, d := t.Date()
	return time.Date(y, m, d+1, rolloverHour, 0, 0, 0, c.location)
}

// operatingDay names the service day t belongs to. Times before 04:00 still
// belong to the previous calendar day.
func (c *Cache) operatingDay(t time.Time) string {
	t = t.In(c.location)
	y, m, d := t.Date()
	if t.Hour() < rolloverHour {
		d--
	}
	return time.Date(y, m, d, 12, 0, 0, 0, c.location).Format(dayLayout)
}

func (c *Cache) key(stationID, directionID, day string) string {
	return fmt.Sprintf("%s%s_%s_%s", c.prefix, stationID, directionID, day)
}

func (c *Cache) valid(e entry, now time.Time) bool {
	return e.Version == c.version && now.UnixMilli() < e.ExpiresAt
}

// Get returns the cached payload for the current operating day.
// Expired, outdated or corrupt entries are deleted and reported as a miss.
func (c *Cache) Get(ctx context.Context, stationID, directionID string) (json.RawMessage, bool) {
	now := c.now()
	key := c.key(stationID, directionID, c.operatingDay(now))

	data, ok := c.lookup(ctx, key, now)
	if ok {
		c.hits.Add(ctx, 1)
		return data, true
	}
	c.misses.Add(ctx, 1)

	// Yesterday's entry is no longer addressable once the day rolls over,
	// even when it has not expired yet
	prevKey := c.key(stationID, directionID, c.operatingDay(now.AddDate(0, 0, -1)))
	if err := c.store.Delete(ctx, prevKey); err != nil {
		c.logger.Warn("Failed to delete previous day's schedule entry", "key", prevKey, "error", err)
	}

	return nil, false
}

// lookup reads and validates key, deleting it when invalid
func (c *Cache) lookup(ctx context.Context, key string, now time.Time) (json.RawMessage, bool) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Failed to read cached schedule", "key", key, "error", err)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || !c.valid(e, now) {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to delete invalid schedule entry", "key", key, "error", err)
		}
		return nil, false
	}
	return e.Data, true
}

// Set stores data for the current operating day and sweeps invalid entries.
// A quota error triggers one cleanup and one retry; any remaining failure is
// logged and dropped.
func (c *Cache) Set(ctx context.Context, stationID, directionID string, data json.RawMessage) {
	now := c.now()
	key := c.key(stationID, directionID, c.operatingDay(now))

	raw, err := json.Marshal(entry{
		Data:      data,
		CachedAt:  now.UnixMilli(),
		ExpiresAt: c.NextExpiry(now).UnixMilli(),
		Version:   c.version,
	})
	if err != nil {
		c.logger.Error("Failed to encode schedule entry", "key", key, "error", err)
		return
	}

	err = c.store.Set(ctx, key, raw)
	if err == nil {
		c.Cleanup(ctx)
		return
	}

	if !errors.Is(err, kvstore.ErrQuotaExceeded) {
		c.logger.Error("Failed to cache schedule", "key", key, "error", err)
		return
	}

	c.logger.Warn("Schedule store is full, cleaning up and retrying", "key", key)
	c.writeRetries.Add(ctx, 1)
	c.Cleanup(ctx)
	if err := c.store.Set(ctx, key, raw); err != nil {
		c.logger.Error("Failed to cache schedule after cleanup", "key", key, "error", err)
	}
}

// Cleanup deletes every expired, outdated or unparseable entry under the
// prefix, along with entries keyed to an earlier operating day, and returns
// how many were removed.
func (c *Cache) Cleanup(ctx context.Context) int {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		c.logger.Warn("Failed to list schedule entries", "error", err)
		return 0
	}

	now := c.now()
	today := c.operatingDay(now)
	var invalid []string
	for _, key := range keys {
		if pastDay(key, today) {
			invalid = append(invalid, key)
			continue
		}

		raw, err := c.store.Get(ctx, key)
		if errors.Is(err, kvstore.ErrNotFound) {
			continue
		}
		if err != nil {
			c.logger.Warn("Failed to read schedule entry during cleanup", "key", key, "error", err)
			continue
		}

		var e entry
		if err := json.Unmarshal(raw, &e); err != nil || !c.valid(e, now) {
			invalid = append(invalid, key)
		}
	}

	if len(invalid) == 0 {
		return 0
	}
	if err := c.store.Delete(ctx, invalid...); err != nil {
		c.logger.Warn("Failed to delete invalid schedule entries", "count", len(invalid), "error", err)
		return 0
	}

	c.swept.Add(ctx, int64(len(invalid)))
	c.logger.Debug("Cleaned up schedule cache", "removed", len(invalid))
	return len(invalid)
}

// pastDay reports whether key ends in an operating day before today
func pastDay(key, today string) bool {
	if len(key) < len(dayLayout) {
		return false
	}
	day := key[len(key)-len(dayLayout):]
	if _, err := time.Parse(dayLayout, day); err != nil {
		return false
	}
	return day < today
}

// Clear deletes every entry under the prefix regardless of validity
func (c *Cache) Clear(ctx context.Context) int {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		c.logger.Warn("Failed to list schedule entries", "error", err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("Failed to clear schedule cache", "error", err)
		return 0
	}

	c.logger.Info("Cleared schedule cache", "removed", len(keys))
	return len(keys)
}

// Stats summarizes the entries under the prefix
type Stats struct {
	Entries int     `json:"entries"`
	Bytes   int64   `json:"bytes"`
	SizeKB  float64 `json:"sizeKB"`
	SizeMB  float64 `json:"sizeMB"`
	Size    string  `json:"size"`
}

// Stats counts entries and their serialized size, keys included
func (c *Cache) Stats(ctx context.Context) Stats {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		c.logger.Warn("Failed to list schedule entries", "error", err)
		return Stats{Size: humanize.IBytes(0)}
	}

	var total int64
	entries := 0
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if err != nil {
			continue
		}
		entries++
		total += int64(len(key) + len(raw))
	}

	return Stats{
		Entries: entries,
		Bytes:   total,
		SizeKB:  round2(float64(total) / 1024),
		SizeMB:  round2(float64(total) / (1024 * 1024)),
		Size:    humanize.IBytes(uint64(total)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
