package domain

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius used for meter distances.
	EarthRadiusMeters = 6_371_000.0
	// EarthRadiusKm is the mean Earth radius used for kilometer distances.
	EarthRadiusKm = 6_371.0
	// MaxDistanceMeters is the longest great-circle distance, half the
	// circumference.
	MaxDistanceMeters = math.Pi * EarthRadiusMeters
)

// Haversine returns the great-circle distance between two points in the unit
// of the given radius.
func Haversine(lat1, lon1, lat2, lon2, radius float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	// Rounding can push a past 1 for near-antipodal points.
	a = math.Min(1, math.Max(0, a))

	return 2 * radius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceMeters returns the haversine distance between a and b in meters.
func DistanceMeters(a, b Coordinate) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon, EarthRadiusMeters)
}

// DistanceKm returns the haversine distance between a and b in kilometers.
func DistanceKm(a, b Coordinate) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon, EarthRadiusKm)
}

// RoundMeters rounds a distance to whole meters. It reports false for values
// that are not finite, negative, or longer than MaxDistanceMeters.
func RoundMeters(d float64) (int, bool) {
	if !isFinite(d) || d < 0 || d > MaxDistanceMeters+1 {
		return 0, false
	}
	return int(math.Round(d)), true
}
