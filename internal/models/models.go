package models

// Direction identifiers used by the forecasting API.
// "G" is the outbound (gidiş) leg and "D" the return (dönüş) leg.
const (
	DirectionOutbound = "G"
	DirectionReturn   = "D"
)

// LatLng is a [latitude, longitude] pair as drawn by the map UI
type LatLng [2]float64

// Lat returns the latitude component
func (p LatLng) Lat() float64 { return p[0] }

// Lng returns the longitude component
func (p LatLng) Lng() float64 { return p[1] }

// Stop represents a stop from the stops_geometry static resource
type Stop struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	District string  `json:"district"`
}

// Routes maps line code -> direction -> ordered stop codes (line_routes static resource)
type Routes map[string]map[string][]string

// DirectionInfo is the human-facing summary of one direction of a line
type DirectionInfo struct {
	Label         string `json:"label"`
	FirstStop     string `json:"firstStop"`
	LastStop      string `json:"lastStop"`
	FirstStopCode string `json:"firstStopCode"`
	LastStopCode  string `json:"lastStopCode"`
}
