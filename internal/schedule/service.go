// Package schedule serves metro schedules stale-while-revalidate.
//
// A cached schedule is returned immediately and refreshed in the background;
// without a cached copy the API is called inline. The cache itself stays a
// passive store, this package owns the refresh policy.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNoSchedule is returned when neither the cache nor the API has data
var ErrNoSchedule = errors.New("no schedule data available")

// DefaultRefreshTimeout bounds one background refresh
const DefaultRefreshTimeout = 20 * time.Second

// Cache is the subset of the schedule cache the service uses
type Cache interface {
	Get(ctx context.Context, stationID, directionID string) (json.RawMessage, bool)
	Set(ctx context.Context, stationID, directionID string, data json.RawMessage)
}

// Fetcher retrieves a fresh schedule from the forecasting API
type Fetcher interface {
	MetroSchedule(ctx context.Context, stationID, directionID string) (json.RawMessage, error)
}

// Result is a schedule payload and whether it came from the cache
type Result struct {
	Data      json.RawMessage
	FromCache bool
}

// Service composes the schedule cache with the forecasting API
type Service struct {
	cache          Cache
	fetcher        Fetcher
	logger         *slog.Logger
	refreshTimeout time.Duration
	onUpdate       func(stationID, directionID string, data json.RawMessage)

	refreshes sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRefreshTimeout bounds background refreshes
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.refreshTimeout = timeout
		}
	}
}

// WithOnUpdate registers a callback for every freshly fetched payload,
// including those fetched in the background after a cache hit.
func WithOnUpdate(fn func(stationID, directionID string, data json.RawMessage)) Option {
	return func(s *Service) { s.onUpdate = fn }
}

// NewService creates a Service
func NewService(cache Cache, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		cache:          cache,
		fetcher:        fetcher,
		logger:         slog.Default(),
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the schedule for a station and direction.
//
// On a cache hit the cached payload is returned and a background refresh is
// started whose failure is only logged. On a miss the API is called inline
// and a failure is reported as ErrNoSchedule.
func (s *Service) Lookup(ctx context.Context, stationID, directionID string) (Result, error) {
	if data, ok := s.cache.Get(ctx, stationID, directionID); ok {
		s.refreshInBackground(ctx, stationID, directionID)
		return Result{Data: data, FromCache: true}, nil
	}

	data, err := s.fetch(ctx, stationID, directionID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNoSchedule, err)
	}
	return Result{Data: data}, nil
}

// Wait blocks until every background refresh has finished
func (s *Service) Wait() {
	s.refreshes.Wait()
}

func (s *Service) refreshInBackground(ctx context.Context, stationID, directionID string) {
	// The refresh must outlive the request that triggered it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)

	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		defer cancel()

		if _, err := s.fetch(ctx, stationID, directionID); err != nil {
			s.logger.Debug("Background schedule refresh failed, keeping cached copy",
				"station", stationID, "direction", directionID, "error", err)
		}
	}()
}

func (s *Service) fetch(ctx context.Context, stationID, directionID string) (json.RawMessage, error) {
	data, err := s.fetcher.MetroSchedule(ctx, stationID, directionID)
	if err != nil {
		return nil, err
	}

	// Store the payload even if the caller has gone away
	s.cache.Set(context.WithoutCancel(ctx), stationID, directionID, data)
	if s.onUpdate != nil {
		s.onUpdate(stationID, directionID, data)
	}
	return data, nil
}
