package dispatch

import (
	"container/list"
	"sync"

	domain "citypulse/pkg/types"
)

const defaultStatusCapacity = 16384

// StatusCache is an advisory in-process view of recent delivery
// outcomes, keyed by notification id. The durable store stays the
// source of truth; the cache answers fast-path status lookups without a
// round trip. Bounded FIFO like DedupCache.
type StatusCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
}

type statusEntry struct {
	id     string
	status domain.NotificationStatus
}

// NewStatusCache creates a cache holding at most capacity records. A
// capacity of zero or less uses the default.
func NewStatusCache(capacity int) *StatusCache {
	if capacity <= 0 {
		capacity = defaultStatusCapacity
	}
	return &StatusCache{
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}
}

// Set records the latest known status for a notification, evicting the
// oldest record when full.
func (c *StatusCache) Set(id string, status domain.NotificationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[id]; ok {
		el.Value.(*statusEntry).status = status
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*statusEntry).id)
	}

	c.entries[id] = c.order.PushBack(&statusEntry{id: id, status: status})
}

// Status returns the cached status for a notification id.
func (c *StatusCache) Status(id string) (domain.NotificationStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		return "", false
	}
	return el.Value.(*statusEntry).status, true
}

// Len returns the number of tracked notifications.
func (c *StatusCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
