// Package cache provides the bounded TTL caches used by the weather and
// knowledge clients.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// Cache is a thread-safe LRU cache whose entries expire after a fixed TTL.
// Zero values (including nil pointers) are stored like any other value, so a
// failed lookup can be cached for the full TTL.
type Cache[V any] struct {
	name       string
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry[V]
	head    *entry[V] // most recently used
	tail    *entry[V] // least recently used

	inflight singleflight.Group
}

type entry[V any] struct {
	key     string
	value   V
	expires time.Time
	prev    *entry[V]
	next    *entry[V]
}

// New creates a cache. maxEntries <= 0 means unbounded. A nil clock uses real time.
func New[V any](name string, ttl time.Duration, maxEntries int, clock clockwork.Clock) *Cache[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache[V]{
		name:       name,
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry[V]),
	}
}

// Name identifies the cache in logs and metrics.
func (c *Cache[V]) Name() string {
	return c.name
}

// Get returns the live value for key. Expired entries are removed.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expires) {
		c.delete(e)
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.delete(c.tail)
	}
}

// GetOrLoad returns the cached value for key or runs load to produce it. At
// most one load per key is in flight; concurrent callers share its result.
// load reports whether its value may be cached. hit is true when no load ran
// for this caller.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, bool)) (value V, hit bool) {
	if v, ok := c.Get(key); ok {
		return v, true
	}

	loaded := false
	v, _, _ := c.inflight.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		loaded = true
		v, store := load(ctx)
		if store {
			c.Set(key, v)
		}
		return v, nil
	})
	value, _ = v.(V)
	return value, !loaded
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for e := c.tail; e != nil; {
		prev := e.prev
		if !now.Before(e.expires) {
			c.delete(e)
			removed++
		}
		e = prev
	}
	return removed
}

func (c *Cache[V]) delete(e *entry[V]) {
	if e == nil {
		return
	}
	delete(c.entries, e.key)
	c.remove(e)
}

func (c *Cache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Cache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}
