package geo

import (
	"math"

	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
)

const earthRadiusMeters = 6371000

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the great-circle distance in meters between two map
// points, treating the earth as a sphere. Good enough for summing the
// segments of a metro polyline.
func Distance(from, to models.LatLng) float64 {
	lat1, lat2 := radians(from.Lat()), radians(to.Lat())
	sinLat := math.Sin((lat2 - lat1) / 2)
	sinLng := math.Sin(radians(to.Lng()-from.Lng()) / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(math.Min(h, 1)))
}

// LineLength calculates the total length of a polyline in meters
func LineLength(coords []models.LatLng) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// ValidCoordinate reports whether lat/lng can be drawn on the map.
// Zero components are treated as missing: the static resources use 0 for
// stops whose geometry was never surveyed.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat == 0 || lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
