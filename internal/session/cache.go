// pattern: Imperative Shell

package session

import (
	"sync"
	"time"
)

// CacheEntry is a warmed session list with its fetch time.
type CacheEntry struct {
	Sessions  []Session
	FetchedAt time.Time
}

// Cache holds warmed session lists keyed by worktree ID. One prefetch task
// owns one key per run, so a single RWMutex suffices.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewCache creates an empty session-list cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]CacheEntry)}
}

// Set stores the session list for a worktree.
func (c *Cache) Set(worktreeID string, sessions []Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[worktreeID] = CacheEntry{Sessions: sessions, FetchedAt: time.Now()}
}

// Get returns the cached list for a worktree, if warmed.
func (c *Cache) Get(worktreeID string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[worktreeID]
	return e, ok
}

// Invalidate drops the cached list for a worktree.
func (c *Cache) Invalidate(worktreeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, worktreeID)
}

// Len returns the number of warmed worktrees.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
