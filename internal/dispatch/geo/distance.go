// Package geo provides great-circle distance and a flat-speed travel time estimate.
package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// AverageSpeedKmh is the assumed city travel speed used for all estimates.
	AverageSpeedKmh = 20.0
)

// DistanceKm returns the haversine distance between two WGS-84 points in kilometres.
func DistanceKm(aLat, aLng, bLat, bLng float64) float64 {
	aLatRad := aLat * math.Pi / 180
	bLatRad := bLat * math.Pi / 180
	deltaLat := (bLat - aLat) * math.Pi / 180
	deltaLng := (bLng - aLng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(aLatRad)*math.Cos(bLatRad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// EstimateMinutes converts a distance into whole travel minutes at AverageSpeedKmh.
func EstimateMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / AverageSpeedKmh * 60))
}
