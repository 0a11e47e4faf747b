// pattern: Functional Core

package prefetch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of warm-up work. Tasks catch their own failures and record
// them; they never report an error to the runner. That contract is what
// lets the chunk join below be a plain wait-for-all with no partial-failure
// handling.
type Task func(ctx context.Context)

// RunInChunks processes tasks in consecutive chunks of size at most limit.
// All tasks in a chunk run concurrently; the next chunk starts only once
// every task in the current chunk has returned. A single slow task
// therefore delays the following chunk — bounded concurrency with a
// chunk-level barrier is the contract here, not maximum throughput.
func RunInChunks(ctx context.Context, tasks []Task, limit int) {
	if limit < 1 {
		limit = 1
	}

	for start := 0; start < len(tasks); start += limit {
		end := start + limit
		if end > len(tasks) {
			end = len(tasks)
		}

		var g errgroup.Group
		for _, task := range tasks[start:end] {
			task := task
			g.Go(func() error {
				task(ctx)
				return nil
			})
		}
		// Tasks never return errors, so Wait is a pure barrier.
		_ = g.Wait()
	}
}
