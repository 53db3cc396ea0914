package routecache

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/farukkamcici/ibb-transport-sub000/internal/geo"
	"github.com/farukkamcici/ibb-transport-sub000/internal/models"
)

// streetSuffix matches one trailing neighbourhood/avenue/street abbreviation
var streetSuffix = regexp.MustCompile(`(?i)\s+(?:MAH|CAD|SOK)\.?\s*$`)

// GetRouteStops returns the ordered stops of a line in one direction.
// Stops without usable coordinates are left out.
func (c *Cache) GetRouteStops(line, direction string) []models.Stop {
	if direction == "" {
		direction = models.DirectionOutbound
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.topologyLoadedLocked() {
		return []models.Stop{}
	}

	codes := c.routes[line][direction]
	stops := make([]models.Stop, 0, len(codes))
	for _, code := range codes {
		stop, ok := c.stops[code]
		if !ok || !geo.ValidCoordinate(stop.Lat, stop.Lng) {
			continue
		}
		if stop.Name == "" {
			stop.Name = unknownStopName
		}
		stop.Code = code
		stops = append(stops, stop)
	}
	return stops
}

// GetDirectionInfo labels every direction of a line by its terminal stop.
// Directions without stops are omitted.
func (c *Cache) GetDirectionInfo(line string) map[string]models.DirectionInfo {
	info := make(map[string]models.DirectionInfo)
	for _, direction := range c.GetAvailableDirections(line) {
		stops := c.GetRouteStops(line, direction)
		if len(stops) == 0 {
			continue
		}
		first, last := stops[0], stops[len(stops)-1]
		info[direction] = models.DirectionInfo{
			Label:         directionLabel(last.Name),
			FirstStop:     first.Name,
			LastStop:      last.Name,
			FirstStopCode: first.Code,
			LastStopCode:  last.Code,
		}
	}
	return info
}

// GetAvailableDirections returns the direction codes known for a line, sorted
func (c *Cache) GetAvailableDirections(line string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	directions := make([]string, 0, len(c.routes[line]))
	for direction := range c.routes[line] {
		directions = append(directions, direction)
	}
	sort.Strings(directions)
	return directions
}

func directionLabel(stopName string) string {
	upper := strings.ToUpperSpecial(unicode.TurkishCase, stopName)
	return strings.TrimSpace(streetSuffix.ReplaceAllString(upper, ""))
}
