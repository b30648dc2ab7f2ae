package dispatch

import (
	"container/list"
	"sync"
	"time"
)

const defaultDedupCapacity = 8192

// DedupCache remembers when a (user, condition) pair last had a
// notification delivered, bounded FIFO so a large user base cannot grow
// it without limit. Failed dispatches are never recorded, so the next
// tick retries them.
type DedupCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
}

type dedupEntry struct {
	key    string
	sentAt time.Time
}

// NewDedupCache creates a cache holding at most capacity pairs. A
// capacity of zero or less uses the default.
func NewDedupCache(capacity int) *DedupCache {
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	return &DedupCache{
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}
}

// Suppressed reports whether the pair is still inside its cooldown
// window.
func (c *DedupCache) Suppressed(key string, now time.Time, cooldown time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	return now.Sub(el.Value.(*dedupEntry).sentAt) < cooldown
}

// Record stamps a delivered notification for the pair, evicting the
// oldest tracked pair when full.
func (c *DedupCache) Record(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*dedupEntry).sentAt = now
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*dedupEntry).key)
	}

	c.entries[key] = c.order.PushBack(&dedupEntry{key: key, sentAt: now})
}

// Len returns the number of tracked pairs.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
