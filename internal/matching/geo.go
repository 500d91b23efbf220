package matching

import "math"

const earthRadiusKm = 6371

// SentinelDistanceKm is returned when either side has no location, so
// location-less profiles sink to the bottom of the ranking instead of
// erroring out.
const SentinelDistanceKm = 999999.0

// Distance returns the great-circle distance between two coordinate pairs in
// kilometers, or SentinelDistanceKm when either side is missing. Never fails.
func Distance(a, b *Coordinates) float64 {
	if a == nil || b == nil {
		return SentinelDistanceKm
	}

	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180)*math.Cos(b.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}
