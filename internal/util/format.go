package util

import (
	"fmt"
	"strconv"
	"strings"

	"atmfinder/internal/model"
)

// FormatDistance formats a distance the way the list shows it: "1.5 km", "0.3 mile".
// Kilometer is abbreviated; any other unit is printed as reported.
func FormatDistance(distance float64, unit string) string {
	label := unit
	if strings.EqualFold(unit, string(model.UnitKilometer)) {
		label = "km"
	}
	return strings.TrimSpace(formatNumber(distance) + " " + label)
}

// FormatCityLine formats "City, SUB Postal" for an address.
func FormatCityLine(a model.Address) string {
	return fmt.Sprintf("%s, %s %s", a.City, a.SubdivisionCode, a.PostalCode)
}

// FormatCoordinate formats a location as "40.74286°N 74.00028°W".
func FormatCoordinate(l model.Location) string {
	ns, ew := "N", "E"
	lat, lng := l.Latitude, l.Longitude
	if lat < 0 {
		ns = "S"
		lat = -lat
	}
	if lng < 0 {
		ew = "W"
		lng = -lng
	}
	return fmt.Sprintf("%.5f°%s %.5f°%s", lat, ns, lng, ew)
}

// formatNumber keeps at most two decimals and drops trailing zeros.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
