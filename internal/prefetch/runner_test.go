package prefetch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunInChunks_RunsEveryTask(t *testing.T) {
	var ran atomic.Int32
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = func(context.Context) { ran.Add(1) }
	}

	RunInChunks(context.Background(), tasks, 3)

	if got := ran.Load(); got != 10 {
		t.Errorf("expected 10 tasks run, got %d", got)
	}
}

func TestRunInChunks_NeverExceedsLimit(t *testing.T) {
	const limit = 3
	var inflight, peak atomic.Int32

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = func(context.Context) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inflight.Add(-1)
		}
	}

	RunInChunks(context.Background(), tasks, limit)

	if got := peak.Load(); got > limit {
		t.Errorf("expected at most %d tasks in flight, saw %d", limit, got)
	}
}

func TestRunInChunks_ChunkBarrier(t *testing.T) {
	var mu sync.Mutex
	var order []int

	record := func(i int) {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
	}

	// Chunk 1 = {0, 1}, chunk 2 = {2, 3}. Task 0 is slow; the barrier must
	// hold tasks 2 and 3 until it finishes.
	tasks := []Task{
		func(context.Context) { time.Sleep(50 * time.Millisecond); record(0) },
		func(context.Context) { record(1) },
		func(context.Context) { record(2) },
		func(context.Context) { record(3) },
	}

	RunInChunks(context.Background(), tasks, 2)

	pos := make(map[int]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if len(pos) != 4 {
		t.Fatalf("expected 4 completions, got %v", order)
	}
	if pos[2] < pos[0] || pos[3] < pos[0] {
		t.Errorf("chunk 2 started before chunk 1 completed: %v", order)
	}
}

func TestRunInChunks_PartialFinalChunk(t *testing.T) {
	var ran atomic.Int32
	tasks := make([]Task, 7)
	for i := range tasks {
		tasks[i] = func(context.Context) { ran.Add(1) }
	}

	RunInChunks(context.Background(), tasks, 3)

	if got := ran.Load(); got != 7 {
		t.Errorf("expected 7 tasks run with partial final chunk, got %d", got)
	}
}

func TestRunInChunks_ZeroLimitTreatedAsOne(t *testing.T) {
	var ran atomic.Int32
	tasks := []Task{
		func(context.Context) { ran.Add(1) },
		func(context.Context) { ran.Add(1) },
	}

	RunInChunks(context.Background(), tasks, 0)

	if got := ran.Load(); got != 2 {
		t.Errorf("expected 2 tasks run, got %d", got)
	}
}

func TestRunInChunks_NoTasks(t *testing.T) {
	// Must return immediately without panicking.
	RunInChunks(context.Background(), nil, 3)
}
