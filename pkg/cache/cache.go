// Package cache memoises resolution results for the lifetime of a project handle.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache maps keys to values computed at most once. Values are stored as
// returned, so pointer values are handed out identically to every caller.
// Failed computations are not stored. There is no eviction.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]V
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V)}
}

// Key joins the parts of a composite key, e.g. project identity and commit id.
func Key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Get returns the stored value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrCompute returns the stored value for key or runs compute and stores its
// result. Concurrent callers for the same key share a single computation.
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		c.misses.Add(1)
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Hits counts lookups answered from the map without computing.
func (c *Cache[V]) Hits() int64 { return c.hits.Load() }

// Misses counts computations run.
func (c *Cache[V]) Misses() int64 { return c.misses.Load() }
