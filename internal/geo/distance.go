// Package geo computes great-circle distances between coordinates.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKM is the mean earth radius used by the haversine formula.
const EarthRadiusKM = 6371.0088

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether the point lies within [-90,90] x [-180,180].
func (p Point) Valid() bool {
	return ValidLatitude(p.Lat) && ValidLongitude(p.Lon)
}

// ValidLatitude reports whether lat is within [-90, 90].
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lon is within [-180, 180].
func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}

// DistanceKM returns the haversine great-circle distance between a and b in
// kilometers. The angular term is clamped to [-1, 1] so rounding at identical
// or antipodal points cannot produce NaN.
func DistanceKM(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	h = clamp(h, -1, 1)

	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

// DistanceSQL renders DistanceKM as a Postgres expression over the given
// latitude/longitude columns, with the viewer coordinates bound to the
// positional parameters latArg and lonArg. Rows with NULL coordinates yield
// NULL.
func DistanceSQL(latCol, lonCol string, latArg, lonArg int) string {
	return fmt.Sprintf(
		"(2 * %g * ASIN(SQRT(LEAST(1, GREATEST(-1, "+
			"POWER(SIN(RADIANS(%[2]s - $%[4]d::float8) / 2), 2) + "+
			"COS(RADIANS($%[4]d::float8)) * COS(RADIANS(%[2]s)) * "+
			"POWER(SIN(RADIANS(%[3]s - $%[5]d::float8) / 2), 2))))))",
		EarthRadiusKM, latCol, lonCol, latArg, lonArg,
	)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
