package models

import "strings"

// LineColors holds the map colors of Istanbul rail lines, keyed by line code
var LineColors = map[string]string{
	"M1A": "#E32119", // Red
	"M1B": "#E32119", // Red
	"M2":  "#00A651", // Green
	"M3":  "#00AEEF", // Light blue
	"M4":  "#EC008C", // Pink
	"M5":  "#6F2C91", // Purple
	"M6":  "#C49A6C", // Brown
	"M7":  "#F49AC1", // Light pink
	"M8":  "#0072BC", // Blue
	"M9":  "#FFD200", // Yellow
	"M11": "#8C5FA8", // Lilac
	"T1":  "#0055A5", // Tram blue
	"T4":  "#F7941D", // Orange
	"T5":  "#8DC63F", // Light green
	"F1":  "#939598", // Funicular gray
	"B1":  "#8A8C8E", // Marmaray
}

// LineColor returns the map color for a line code
func LineColor(lineCode string) string {
	if color, ok := LineColors[strings.ToUpper(lineCode)]; ok {
		return color
	}
	return "#888888" // Default gray for bus and unknown lines
}
