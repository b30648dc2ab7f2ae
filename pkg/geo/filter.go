package geo

import (
	"math"
	"slices"
)

// Ranged pairs an item with its exact distance from a search center.
type Ranged[T any] struct {
	Item       T
	DistanceKm float64
}

// DistanceFunc computes the distance in kilometers between two
// coordinates. geo.HaversineKm satisfies it, as does the memoizing
// (*DistanceCache).HaversineKm.
type DistanceFunc func(lat1, lng1, lat2, lng2 float64) float64

// NearestWithin runs the two-stage radius filter: an axis-aligned
// bounding-box rejection pass over all items, then an exact haversine
// distance on the survivors, filtered to radiusKm and sorted by distance
// ascending. at extracts an item's coordinate. Items with invalid
// coordinates are dropped.
//
// The bounding-box pass is the cheap O(N) stage; any strategy scanning
// more than a few dozen points must go through this function rather than
// computing exact distances directly.
func NearestWithin[T any](
	items []T,
	at func(T) (lat, lng float64),
	lat, lng, radiusKm float64,
) []Ranged[T] {
	return NearestWithinFunc(items, at, lat, lng, radiusKm, HaversineKm)
}

// NearestWithinFunc is NearestWithin with a caller-supplied exact
// distance function, letting hot paths plug in a DistanceCache.
func NearestWithinFunc[T any](
	items []T,
	at func(T) (lat, lng float64),
	lat, lng, radiusKm float64,
	dist DistanceFunc,
) []Ranged[T] {
	if !Valid(lat, lng) || radiusKm <= 0 {
		return nil
	}

	box := boundingBox(lat, lng, radiusKm)

	out := make([]Ranged[T], 0, len(items)/4+1)
	for _, item := range items {
		pLat, pLng := at(item)
		if !Valid(pLat, pLng) || !box.contains(pLat, pLng) {
			continue
		}

		d := dist(lat, lng, pLat, pLng)
		if d <= radiusKm {
			out = append(out, Ranged[T]{Item: item, DistanceKm: d})
		}
	}

	// Stable sort keeps input order for equidistant points, which makes
	// strategy output deterministic.
	slices.SortStableFunc(out, func(a, b Ranged[T]) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return 0
		}
	})

	return out
}

type box struct {
	minLat, maxLat float64
	minLng, maxLng float64
}

// boundingBox returns the smallest axis-aligned box guaranteed to contain
// every point within radiusKm of the center. The longitude span widens
// toward the poles; at extreme latitudes it degenerates to the full range.
func boundingBox(lat, lng, radiusKm float64) box {
	latDelta := radiusKm / kmPerDegreeLat

	cos := cosClamped(lat)
	lngDelta := 180.0
	if cos > 1e-6 {
		lngDelta = radiusKm / (kmPerDegreeLat * cos)
	}

	return box{
		minLat: lat - latDelta,
		maxLat: lat + latDelta,
		minLng: lng - lngDelta,
		maxLng: lng + lngDelta,
	}
}

func (b box) contains(lat, lng float64) bool {
	return lat >= b.minLat && lat <= b.maxLat &&
		lng >= b.minLng && lng <= b.maxLng
}

func cosClamped(lat float64) float64 {
	c := math.Cos(toRad(lat))
	if c < 0 {
		return 0
	}
	return c
}
