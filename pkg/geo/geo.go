// Package geo provides the distance and bearing math used by trigger
// strategies and radius filters. All functions are pure.
package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// kmPerDegreeLat is the approximate north-south span of one degree
	// of latitude, used for bounding-box pre-filters.
	kmPerDegreeLat = 111.32
)

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Valid reports whether the pair is a usable WGS84 coordinate. Strategies
// must treat invalid coordinates as "cannot evaluate", never as distance
// zero or infinity.
func Valid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lng)
}

// HaversineKm returns the great-circle distance in kilometers. Use this
// whenever accuracy matters beyond a kilometer or two.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// FastKm returns an equirectangular approximation of the distance in
// kilometers. It is cheap and accurate enough for short ranges (roughly
// under a kilometer) and for sorting survivors of a bounding-box
// pre-filter. It must not be used where accuracy across more than ~10 km
// matters.
func FastKm(lat1, lng1, lat2, lng2 float64) float64 {
	x := toRad(lng2-lng1) * math.Cos(toRad((lat1+lat2)/2))
	y := toRad(lat2 - lat1)
	return math.Sqrt(x*x+y*y) * earthRadiusKm
}

// ManhattanKm returns the axis-aligned (grid) distance in kilometers:
// the north-south leg plus the east-west leg. Only for strategies with
// explicit grid semantics.
func ManhattanKm(lat1, lng1, lat2, lng2 float64) float64 {
	ns := math.Abs(lat2-lat1) * kmPerDegreeLat
	ew := math.Abs(toRad(lng2-lng1)) * math.Cos(toRad((lat1+lat2)/2)) * earthRadiusKm
	return ns + ew
}

// BearingDeg returns the initial bearing from the first point to the
// second, in degrees clockwise from north in [0, 360).
func BearingDeg(lat1, lng1, lat2, lng2 float64) float64 {
	dLng := toRad(lng2 - lng1)
	y := math.Sin(dLng) * math.Cos(toRad(lat2))
	x := math.Cos(toRad(lat1))*math.Sin(toRad(lat2)) -
		math.Sin(toRad(lat1))*math.Cos(toRad(lat2))*math.Cos(dLng)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
