// pattern: Imperative Shell

package session

import (
	"context"
	"fmt"

	"workbench/internal/logging"
)

// Prefetcher warms the session-list cache one worktree at a time.
type Prefetcher struct {
	store  *Store
	cache  *Cache
	logger *logging.ScopedLogger
}

// NewPrefetcher creates a prefetcher reading from store and writing into cache.
func NewPrefetcher(store *Store, cache *Cache, logger *logging.ScopedLogger) *Prefetcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Prefetcher{store: store, cache: cache, logger: logger}
}

// Prefetch loads the worktree's session list and stores it in the cache.
// worktreePath identifies the worktree on disk for diagnostics only; the
// list itself comes from the store index. The cache entry is only written
// on success.
func (p *Prefetcher) Prefetch(ctx context.Context, worktreeID, worktreePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sessions, err := p.store.ListByWorktree(worktreeID)
	if err != nil {
		return fmt.Errorf("session prefetch for %s (%s): %w", worktreeID, worktreePath, err)
	}

	p.cache.Set(worktreeID, sessions)
	p.logger.Debug("sessions warmed", "worktree", worktreeID, "count", len(sessions))
	return nil
}
