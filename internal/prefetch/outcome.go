// pattern: Functional Core

package prefetch

import "fmt"

// EntityKind tags which kind of entity a warm-up failure belongs to.
type EntityKind string

const (
	KindProject  EntityKind = "project"
	KindWorktree EntityKind = "worktree"
)

// FetchFailure records one leaf operation that failed during a run. Failures
// are scoped to a single project or worktree and never aggregate into a
// run-level error: the run itself cannot fail, it can only leave entities
// unwarmed.
type FetchFailure struct {
	Kind     EntityKind
	EntityID string
	Err      error
}

func (f FetchFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.EntityID, f.Err)
}

func (f FetchFailure) Unwrap() error {
	return f.Err
}
