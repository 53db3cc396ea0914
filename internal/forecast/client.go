package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
)

const (
	stopsGeometryFile = "stops_geometry.json"
	lineRoutesFile    = "line_routes.json"
	userAgent         = "crowdmap-api/1.0.0"
	// maxErrorBody bounds how much of a failed response ends up in error messages
	maxErrorBody = 512
)

// Client talks to the remote forecasting API and its static topology files
type Client struct {
	httpClient *http.Client
	baseURL    string
	staticURL  string
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewClient creates a client for the forecasting API at baseURL.
// staticURL serves the bulk topology files (stops_geometry, line_routes).
func NewClient(baseURL, staticURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		staticURL: strings.TrimRight(staticURL, "/"),
		tracer:    otel.Tracer("forecast-client"),
		logger:    slog.Default(),
	}
}

// stopGeometry is the wire form of one stops_geometry entry.
// Coordinates are pointers so absent values can be told apart from real ones.
type stopGeometry struct {
	Name     string   `json:"name"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	District string   `json:"district"`
}

// StopsGeometry fetches every stop keyed by stop code
func (c *Client) StopsGeometry(ctx context.Context) (map[string]models.Stop, error) {
	var payload struct {
		Stops map[string]stopGeometry `json:"stops"`
	}
	if err := c.getJSON(ctx, "forecast.stops_geometry", c.staticURL+"/"+stopsGeometryFile, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch stops geometry: %w", err)
	}

	stops := make(map[string]models.Stop, len(payload.Stops))
	for code, s := range payload.Stops {
		stop := models.Stop{
			Code:     code,
			Name:     s.Name,
			District: s.District,
		}
		if s.Lat != nil {
			stop.Lat = *s.Lat
		}
		if s.Lng != nil {
			stop.Lng = *s.Lng
		}
		stops[code] = stop
	}
	return stops, nil
}

// LineRoutes fetches the line -> direction -> stop sequence table
func (c *Client) LineRoutes(ctx context.Context) (models.Routes, error) {
	var payload struct {
		Routes models.Routes `json:"routes"`
	}
	if err := c.getJSON(ctx, "forecast.line_routes", c.staticURL+"/"+lineRoutesFile, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch line routes: %w", err)
	}
	if payload.Routes == nil {
		payload.Routes = models.Routes{}
	}
	return payload.Routes, nil
}

// RouteGeometry fetches the drawn geometry of a line for one direction.
//
// Transport failures, non-2xx statuses and undecodable bodies return an error.
// A well-formed body that lacks usable coordinates for the direction returns
// an empty slice and no error; callers treat that as "no geometry available".
func (c *Client) RouteGeometry(ctx context.Context, line, direction string) ([]models.LatLng, error) {
	endpoint := fmt.Sprintf("%s/lines/%s/route?direction=%s",
		c.baseURL, url.PathEscape(line), url.QueryEscape(direction))

	var payload map[string]json.RawMessage
	if err := c.getJSON(ctx, "forecast.route_geometry", endpoint, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch route geometry for %s-%s: %w", line, direction, err)
	}

	raw, ok := payload[direction]
	if !ok {
		return []models.LatLng{}, nil
	}

	var points [][]float64
	if err := json.Unmarshal(raw, &points); err != nil {
		c.logger.Debug("Route geometry has unexpected shape", "line", line, "direction", direction, "error", err)
		return []models.LatLng{}, nil
	}

	coords := make([]models.LatLng, 0, len(points))
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		coords = append(coords, models.LatLng{p[0], p[1]})
	}
	return coords, nil
}

// MetroSchedule fetches the schedule payload for a station and direction.
// The payload is returned untouched so it can be cached verbatim.
func (c *Client) MetroSchedule(ctx context.Context, stationID, directionID string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("station_id", stationID)
	q.Set("direction_id", directionID)
	endpoint := c.baseURL + "/metro/schedule?" + q.Encode()

	body, err := c.get(ctx, "forecast.metro_schedule", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metro schedule for %s/%s: %w", stationID, directionID, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("metro schedule for %s/%s is not valid JSON", stationID, directionID)
	}
	return json.RawMessage(body), nil
}

func (c *Client) getJSON(ctx context.Context, spanName, endpoint string, v interface{}) error {
	body, err := c.get(ctx, spanName, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, spanName, endpoint string) ([]byte, error) {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String("http.url", endpoint),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	span.SetAttributes(attribute.Int("response.size_bytes", len(body)))

	return body, nil
}
