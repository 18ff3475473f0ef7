// Package dedupe remembers recently indexed document identifiers so
// redelivered feed items skip the write path.
package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	id     string
	expiry time.Time
}

// Cache is a bounded set of document identifiers with a per-entry TTL. When
// full, the least recently added identifier is evicted first.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		entries:  make(map[string]*list.Element, capacity),
		lru:      list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Contains reports whether id was added within the ttl window.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		return false
	}
	if c.now().After(el.Value.(*entry).expiry) {
		c.remove(el)
		return false
	}
	return true
}

// Add records id, refreshing its ttl when already present.
func (c *Cache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry := c.now().Add(c.ttl)
	if el, ok := c.entries[id]; ok {
		el.Value.(*entry).expiry = expiry
		c.lru.MoveToFront(el)
		return
	}

	c.entries[id] = c.lru.PushFront(&entry{id: id, expiry: expiry})
	for c.lru.Len() > c.capacity {
		c.remove(c.lru.Back())
	}
}

// Len returns the number of tracked identifiers, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) remove(el *list.Element) {
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*entry).id)
}
