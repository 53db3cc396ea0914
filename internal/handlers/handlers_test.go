package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farukkamcici/ibb-transport-sub000/internal/kvstore"
	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
	"github.com/farukkamcici/ibb-transport-sub000/internal/routecache"
	"github.com/farukkamcici/ibb-transport-sub000/internal/schedule"
	"github.com/farukkamcici/ibb-transport-sub000/internal/schedulecache"
)

// fakeAPI stands in for the forecasting API client
type fakeAPI struct {
	mu          sync.Mutex
	scheduleErr error
}

func (f *fakeAPI) StopsGeometry(ctx context.Context) (map[string]models.Stop, error) {
	return map[string]models.Stop{
		"YK": {Name: "Yenikapı", Lat: 41.005, Lng: 28.951},
		"TK": {Name: "Taksim", Lat: 41.037, Lng: 28.985},
		"HC": {Name: "Hacıosman Mah.", Lat: 41.142, Lng: 29.031},
	}, nil
}

func (f *fakeAPI) LineRoutes(ctx context.Context) (models.Routes, error) {
	return models.Routes{
		"M2": {
			"G": {"YK", "TK", "HC"},
			"D": {"HC", "TK", "YK"},
		},
	}, nil
}

func (f *fakeAPI) RouteGeometry(ctx context.Context, line, direction string) ([]models.LatLng, error) {
	if line == "M2" && direction == "G" {
		return []models.LatLng{{41.005, 28.951}, {41.020, 28.970}, {41.037, 28.985}}, nil
	}
	return []models.LatLng{}, nil
}

func (f *fakeAPI) MetroSchedule(ctx context.Context, stationID, directionID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	return json.RawMessage(`{"station":"` + stationID + `","times":["06:00","06:04"]}`), nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	handler  http.Handler
	api      *fakeAPI
	store    *kvstore.Memory
	service  *schedule.Service
	schedule *schedulecache.Cache
}

func newTestServer(t *testing.T, pingErr error) *testServer {
	t.Helper()

	api := &fakeAPI{}
	store := kvstore.NewMemory(0)
	routes := routecache.New(api)
	cache := schedulecache.New(store, schedulecache.WithLocation(time.UTC))
	service := schedule.NewService(cache, api)
	t.Cleanup(service.Wait)

	return &testServer{
		handler: NewRouter(RouterConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			Routes:         NewRouteHandler(routes),
			Schedule:       NewScheduleHandler(service, nil),
			Cache:          NewCacheHandler(cache),
			Health:         NewHealthHandler(fakePinger{err: pingErr}, routes),
		}),
		api:      api,
		store:    store,
		service:  service,
		schedule: cache,
	}
}

func (s *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestGetPolyline(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/lines/M2/polyline")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "stale-while-revalidate")

	var resp PolylineResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "M2", resp.Line)
	assert.Equal(t, "G", resp.Direction)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, models.LineColor("M2"), resp.Color)
	assert.Greater(t, resp.LengthMeters, 3000.0)
}

func TestGetPolyline_FallsBackToStops(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/lines/M2/polyline?direction=D")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PolylineResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []models.LatLng{{41.142, 29.031}, {41.037, 28.985}, {41.005, 28.951}}, resp.Coordinates)
}

func TestGetPolyline_UnknownLineIsEmpty(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/lines/M99/polyline")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp PolylineResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Coordinates)
}

func TestGetStopsAndDirections(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/lines/M2/stops?direction=G")
	require.Equal(t, http.StatusOK, rec.Code)
	var stops StopsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stops))
	assert.Equal(t, 3, stops.Count)
	assert.Equal(t, "YK", stops.Stops[0].Code)

	rec = s.do(t, http.MethodGet, "/api/lines/M2/directions")
	require.Equal(t, http.StatusOK, rec.Code)
	var dirs DirectionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dirs))
	assert.Equal(t, []string{"D", "G"}, dirs.Directions)
	assert.Equal(t, "HACIOSMAN", dirs.Info["G"].Label)
	assert.Equal(t, "YENİKAPI", dirs.Info["D"].Label)
}

func TestGetSchedule_MissThenHit(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/metro/schedule/YK/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"station":"YK","times":["06:00","06:04"]}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/metro/schedule/YK/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	s.service.Wait()
}

func TestGetSchedule_StaleServedWhenUpstreamFails(t *testing.T) {
	s := newTestServer(t, nil)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/metro/schedule/YK/1").Code)

	s.api.mu.Lock()
	s.api.scheduleErr = errors.New("upstream down")
	s.api.mu.Unlock()

	rec := s.do(t, http.MethodGet, "/api/metro/schedule/YK/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = s.do(t, http.MethodGet, "/api/metro/schedule/TK/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "no schedule data available", resp.Error)
	assert.Equal(t, "TK", resp.Details["stationId"])
}

type failingSchedule struct{ err error }

func (f failingSchedule) Lookup(ctx context.Context, stationID, directionID string) (schedule.Result, error) {
	return schedule.Result{}, f.err
}

func TestGetSchedule_AnyFailureIsNotFound(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := NewScheduleHandler(failingSchedule{err: context.DeadlineExceeded}, logger)
	r := chi.NewRouter()
	r.Get("/api/metro/schedule/{stationId}/{directionId}", h.GetSchedule)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metro/schedule/YK/2", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, schedule.ErrNoSchedule.Error(), resp.Error)
	assert.Equal(t, "2", resp.Details["directionId"])

	assert.Contains(t, logs.String(), "No schedule available")
	assert.Contains(t, logs.String(), "station=YK")
}

func TestCacheAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/metro/schedule/YK/1").Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/metro/schedule/TK/1").Code)

	rec := s.do(t, http.MethodGet, "/api/cache/metro/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats schedulecache.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 2, stats.Entries)
	assert.NotEmpty(t, stats.Size)

	rec = s.do(t, http.MethodPost, "/api/cache/metro/cleanup")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":0}`, rec.Body.String())

	rec = s.do(t, http.MethodDelete, "/api/cache/metro")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":2}`, rec.Body.String())

	keys, err := s.store.Keys(context.Background(), schedulecache.DefaultPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "connected", resp.Store)
	assert.False(t, resp.Routes.TopologyLoaded)

	s.do(t, http.MethodGet, "/api/lines/M2/stops")
	rec = s.do(t, http.MethodGet, "/health")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Routes.TopologyLoaded)
	assert.Equal(t, 3, resp.Routes.Stops)

	down := newTestServer(t, errors.New("database is locked"))
	rec = down.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "database is locked"))
}

func TestLivenessEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/ping")
	assert.Equal(t, "pong", rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/metro/schedule/YK/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
