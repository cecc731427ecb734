// Package geo provides great-circle distance and bearing math for
// movement-telemetry analysis. All distances are haversine-based.
package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// CoordinateEpsilon is the threshold for treating coordinates as equal.
	// 1e-7 degrees is roughly 1.1cm at the equator, well below GPS accuracy,
	// while avoiding direct float equality comparisons.
	CoordinateEpsilon = 1e-7
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is within WGS84 coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Equal reports whether two points are within CoordinateEpsilon of each other.
func (p Point) Equal(other Point) bool {
	return math.Abs(p.Lat-other.Lat) < CoordinateEpsilon &&
		math.Abs(p.Lng-other.Lng) < CoordinateEpsilon
}

// DistanceKm calculates the great-circle distance between two points using
// the haversine formula. Returns distance in kilometers.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lon1 := a.Lng * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	lon2 := b.Lng * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// DistanceMeters calculates the haversine distance in meters.
func DistanceMeters(a, b Point) float64 {
	return DistanceKm(a, b) * 1000.0
}

// BearingDegrees calculates the initial bearing from a to b in degrees,
// normalized to [0, 360).
func BearingDegrees(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dLon := (b.Lng - a.Lng) * math.Pi / 180.0

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	bearing := math.Atan2(y, x) * 180.0 / math.Pi
	return math.Mod(bearing+360.0, 360.0)
}

// BearingDelta returns the absolute angular difference between two bearings
// in degrees, in [0, 180].
func BearingDelta(b1, b2 float64) float64 {
	delta := math.Abs(b1 - b2)
	if delta > 180.0 {
		delta = 360.0 - delta
	}
	return delta
}

// Centroid returns the arithmetic centroid of the given points.
// Adequate for the short distances this engine works with; no spherical
// averaging is performed. Returns the zero Point for an empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(points))
	return Point{Lat: sumLat / n, Lng: sumLng / n}
}
