// pattern: Imperative Shell

package gitstatus

import (
	"sync"
	"time"
)

// Entry is a cached status with its fetch time.
type Entry struct {
	Status    Status
	FetchedAt time.Time
}

// Cache holds warmed git statuses keyed by project ID. Concurrent prefetch
// tasks write disjoint keys, so a single RWMutex around the map is all the
// discipline required.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache creates an empty status cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Set stores the status for a project.
func (c *Cache) Set(projectID string, st Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[projectID] = Entry{Status: st, FetchedAt: time.Now()}
}

// Get returns the cached status for a project, if warmed.
func (c *Cache) Get(projectID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[projectID]
	return e, ok
}

// Invalidate drops the cached status for a project.
func (c *Cache) Invalidate(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, projectID)
}

// Len returns the number of warmed entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of all warmed entries.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
