// Package geo contains pure geographic computation helpers.
package geo

import (
	"fmt"
	"math"

	"rumbo/internal/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// FormatDistance renders a distance in kilometres for list views:
// under 50 m it reports "< 50 m", under 1 km it truncates to a 50 m step,
// otherwise it shows kilometres with one decimal.
func FormatDistance(km float64) string {
	meters := km * 1000
	switch {
	case meters < 50:
		return "< 50 m"
	case meters < 1000:
		return fmt.Sprintf("%d m", int(meters/50)*50)
	default:
		return fmt.Sprintf("%.1f km", km)
	}
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
