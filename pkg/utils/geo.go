package utils

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean earth radius used by HaversineKm.
const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the rough length of one degree of latitude.
const kmPerDegreeLat = 111.0

// CoordinateTolerance is the per-axis delta under which two coordinates are
// considered the same place.
const CoordinateTolerance = 1e-4

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a just past 1 for near-antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// PointDistanceKm is HaversineKm over orb points (lon, lat order).
func PointDistanceKm(a, b orb.Point) float64 {
	return HaversineKm(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// BoundingBox returns the lat/lng box that contains every point within
// radiusKm of (lat, lng). The box is a superset of the circle.
func BoundingBox(lat, lng, radiusKm float64) orb.Bound {
	latDelta := radiusKm / kmPerDegreeLat
	lngDelta := radiusKm / (kmPerDegreeLat * math.Cos(toRadians(lat)))

	return orb.Bound{
		Min: orb.Point{lng - lngDelta, lat - latDelta},
		Max: orb.Point{lng + lngDelta, lat + latDelta},
	}
}

// SameCoordinates reports whether two coordinates fall within CoordinateTolerance
// on both axes.
func SameCoordinates(lat1, lng1, lat2, lng2 float64) bool {
	return math.Abs(lat1-lat2) < CoordinateTolerance && math.Abs(lng1-lng2) < CoordinateTolerance
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
