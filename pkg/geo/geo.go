// Package geo provides pure great-circle math for the dispatch core: distance,
// coordinate validation and circular geofence containment. No I/O, no state.
package geo

import (
	"math"

	"carcare-dispatch/internal/models"
)

// EarthRadiusKm is the spherical-Earth approximation radius used throughout.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance between two points
// in kilometers. Identical inputs yield exactly zero.
func DistanceKm(a, b models.Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// IsValid reports whether c is a usable fix: in range and not the reserved
// (0,0) unknown sentinel.
func IsValid(c models.Coordinates) bool {
	if c.IsZero() {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// IsWithin reports whether point falls inside the circular region. Disabled
// regions contain nothing.
func IsWithin(point models.Coordinates, region models.GeofenceRegion) bool {
	if !region.Enabled {
		return false
	}
	return DistanceKm(point, region.Center)*1000 <= region.RadiusM
}
