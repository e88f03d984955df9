// Package geo provides the straight-line distance and travel-time estimates
// used for rider matching and delivery discovery. No external routing service
// is consulted; surface distance at an assumed average speed is a deliberate
// simplification.
package geo

import (
	"math"

	"foodie-delivery/internal/models"
)

const (
	earthRadiusKm = 6371

	// averageSpeedKmh is the assumed rider speed for time estimates.
	averageSpeedKmh = 30
)

// DistanceKm returns the great-circle distance between a and b in kilometers
// using the Haversine formula.
func DistanceKm(a, b models.GeoPoint) float64 {
	latA := toRadians(a.Latitude)
	latB := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// EstimateMinutes converts a distance into a rounded travel-time estimate at
// the assumed average speed.
func EstimateMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / averageSpeedKmh * 60))
}

// StraightLineRoute returns the two-point route from a to b. It carries no
// semantics beyond its endpoints and exists purely for UI rendering.
func StraightLineRoute(a, b models.GeoPoint) []models.GeoPoint {
	return []models.GeoPoint{a, b}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
