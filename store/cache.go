package store

import (
	"container/list"
	"sync"
	"time"
)

// sessionCache is a small LRU cache with TTL for decoded session states.
// Mutated states are published here only after a successful save; access is
// additionally serialized by the per-session locks in Store.
type sessionCache struct {
	capacity   int
	defaultTTL time.Duration
	mu         sync.Mutex

	entries map[string]*cacheEntry
	order   *list.List
}

type cacheEntry struct {
	key       string
	state     *SessionState
	expiresAt time.Time
	element   *list.Element
}

func newSessionCache(capacity int, defaultTTL time.Duration) *sessionCache {
	if capacity <= 0 {
		capacity = 256
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &sessionCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*cacheEntry),
		order:      list.New(),
	}
}

func (c *sessionCache) Get(key string) (*SessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.state, true
}

func (c *sessionCache) Set(key string, state *SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.state = state
		e.expiresAt = time.Now().Add(c.defaultTTL)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	e := &cacheEntry{
		key:       key,
		state:     state,
		expiresAt: time.Now().Add(c.defaultTTL),
	}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

func (c *sessionCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.removeEntry(e)
	}
}

func (c *sessionCache) removeEntry(e *cacheEntry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}

func (c *sessionCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*cacheEntry))
}
