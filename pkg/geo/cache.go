package geo

import (
	"fmt"
	"sync"
)

const defaultCacheCapacity = 4096

// DistanceCache memoizes haversine distances keyed on coordinate pairs
// rounded to four decimal places (~11 m). It is a pure optimization:
// results are identical with or without it, so concurrent last-write-wins
// updates are harmless. Eviction is FIFO once capacity is reached.
type DistanceCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]float64
	order    []string
}

// NewDistanceCache creates a cache holding at most capacity entries.
// A non-positive capacity falls back to the default.
func NewDistanceCache(capacity int) *DistanceCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &DistanceCache{
		capacity: capacity,
		entries:  make(map[string]float64, capacity),
	}
}

// HaversineKm returns the memoized great-circle distance for the pair.
func (c *DistanceCache) HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	key := cacheKey(lat1, lng1, lat2, lng2)

	c.mu.Lock()
	if d, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return d
	}
	c.mu.Unlock()

	d := HaversineKm(lat1, lng1, lat2, lng2)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.entries) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[key] = d
		c.order = append(c.order, key)
	}
	return d
}

// Len returns the current number of cached entries.
func (c *DistanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(lat1, lng1, lat2, lng2 float64) string {
	return fmt.Sprintf("%.4f,%.4f|%.4f,%.4f", lat1, lng1, lat2, lng2)
}
