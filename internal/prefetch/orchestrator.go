// pattern: Imperative Shell

package prefetch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"workbench/internal/logging"
	"workbench/internal/project"
)

// RunState is the orchestrator's lifecycle. Transitions are one-directional:
// NotStarted → Running → Done, once per process lifetime.
type RunState int32

const (
	NotStarted RunState = iota
	Running
	Done
)

func (s RunState) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return "unknown"
}

// GitStatusFetcher warms the git-status cache entry for one project.
type GitStatusFetcher interface {
	Fetch(ctx context.Context, projectID, path string) error
}

// WorktreeLister returns the worktrees owned by a project.
type WorktreeLister interface {
	WorktreesFor(projectID string) ([]project.Worktree, error)
}

// SessionPrefetcher warms the session-list cache entry for one worktree.
type SessionPrefetcher interface {
	Prefetch(ctx context.Context, worktreeID, worktreePath string) error
}

// Orchestrator warms the git-status and session-list caches once, at
// startup, when the project list first becomes non-empty. Expanded projects
// are warmed first (the user is looking at them); everything else follows
// in the background tier. Work proceeds in chunks of Limit projects; within
// a project, the status fetch and the worktree fan-out run fully parallel.
//
// Every leaf failure is caught at its own call site, logged, recorded, and
// discarded. There is no retry, no cancellation, and no run-level error: a
// failed entity stays cold until some later, independent trigger fetches it.
type Orchestrator struct {
	status   GitStatusFetcher
	lister   WorktreeLister
	sessions SessionPrefetcher
	logger   *logging.ScopedLogger
	limit    int

	state atomic.Int32
	done  chan struct{}

	mu       sync.Mutex
	failures []FetchFailure
}

// New creates an orchestrator. limit caps concurrent per-project warm-ups
// within a chunk; values below 1 are treated as 1.
func New(status GitStatusFetcher, lister WorktreeLister, sessions SessionPrefetcher, limit int, logger *logging.ScopedLogger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if limit < 1 {
		limit = 1
	}
	return &Orchestrator{
		status:   status,
		lister:   lister,
		sessions: sessions,
		logger:   logger,
		limit:    limit,
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() RunState {
	return RunState(o.state.Load())
}

// Done is closed when the run has finished both tiers.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Failures returns the failures recorded so far. Diagnostic only: the
// caches are the orchestrator's real output.
func (o *Orchestrator) Failures() []FetchFailure {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]FetchFailure, len(o.failures))
	copy(out, o.failures)
	return out
}

// Trigger starts the warm-up run if it has not started yet. The expansion
// set is a snapshot: changes after Trigger do not reassign tiers mid-run.
// Returns true if this call started the run.
//
// The latch flips to Running before any asynchronous work begins, so a
// second trigger arriving while the first run is still in flight (e.g. the
// project list reference changed identity without changing content) is a
// no-op. An empty project list does not consume the latch: the run fires at
// the empty → non-empty transition.
func (o *Orchestrator) Trigger(ctx context.Context, projects []project.Project, expanded map[string]struct{}) bool {
	if len(projects) == 0 {
		return false
	}

	if !o.state.CompareAndSwap(int32(NotStarted), int32(Running)) {
		o.logger.Debug("trigger ignored", "state", o.State().String())
		return false
	}

	priority, background := Partition(projects, expanded)
	o.logger.Info("startup prefetch starting",
		"priority", len(priority),
		"background", len(background),
		"limit", o.limit,
	)

	// Fire and forget: no cancellation, a started chunk runs to completion.
	go o.run(ctx, priority, background)
	return true
}

func (o *Orchestrator) run(ctx context.Context, priority, background []project.Project) {
	RunInChunks(ctx, o.tasks(priority), o.limit)
	RunInChunks(ctx, o.tasks(background), o.limit)

	o.state.Store(int32(Done))
	close(o.done)

	o.logger.Info("startup prefetch complete", "failures", len(o.Failures()))
}

// tasks builds one self-catching warm-up task per project.
func (o *Orchestrator) tasks(projects []project.Project) []Task {
	tasks := make([]Task, 0, len(projects))
	for _, p := range projects {
		p := p
		tasks = append(tasks, func(ctx context.Context) {
			o.warmProject(ctx, p)
		})
	}
	return tasks
}

// warmProject fetches the project's git status and, in parallel, lists its
// worktrees and prefetches every worktree's session list. A listing failure
// neither suppresses the status fetch nor affects sibling projects.
func (o *Orchestrator) warmProject(ctx context.Context, p project.Project) {
	var g errgroup.Group

	g.Go(func() error {
		if err := o.status.Fetch(ctx, p.ID, p.Path); err != nil {
			o.record(KindProject, p.ID, err)
		}
		return nil
	})

	g.Go(func() error {
		worktrees, err := o.lister.WorktreesFor(p.ID)
		if err != nil {
			o.record(KindProject, p.ID, err)
			return nil
		}

		// Fully parallel fan-out: unbounded within a project.
		var fan errgroup.Group
		for _, wt := range worktrees {
			wt := wt
			fan.Go(func() error {
				if err := o.sessions.Prefetch(ctx, wt.ID, wt.Path); err != nil {
					o.record(KindWorktree, wt.ID, err)
				}
				return nil
			})
		}
		return fan.Wait()
	})

	_ = g.Wait()
}

// record logs and stores a leaf failure. It never propagates.
func (o *Orchestrator) record(kind EntityKind, entityID string, err error) {
	failure := FetchFailure{Kind: kind, EntityID: entityID, Err: err}

	o.mu.Lock()
	o.failures = append(o.failures, failure)
	o.mu.Unlock()

	o.logger.Warn("prefetch failure",
		"kind", string(kind),
		"entity", entityID,
		"error", err,
	)
}
