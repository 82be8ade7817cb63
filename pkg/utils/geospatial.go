package utils

import (
	"math"
)

const earthRadiusKm = 6371

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineDistance returns the great-circle distance in kilometres between
// two coordinates given in degrees.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLng/2), 2)

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// EstimateETA converts a straight-line distance into whole minutes of travel,
// rounded up, never less than one. A non-positive speed falls back to 30 km/h.
func EstimateETA(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = 30
	}
	minutes := int(math.Ceil(distanceKm / speedKmh * 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}
