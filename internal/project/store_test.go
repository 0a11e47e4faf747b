package project

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"workbench/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), logging.NopLogger())
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	data, err := s.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(data.Projects) != 0 || len(data.Worktrees) != 0 {
		t.Error("expected empty data for missing file")
	}
}

func TestStore_AddAndListProjects(t *testing.T) {
	s := newTestStore(t)

	a, err := s.AddProject("alpha", "/tmp/alpha")
	if err != nil {
		t.Fatal(err)
	}
	f, err := s.AddFolder("grouping")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.AddProject("beta", "/tmp/beta")
	if err != nil {
		t.Fatal(err)
	}

	projects, err := s.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(projects))
	}
	// Sidebar order is insertion order.
	if projects[0].ID != a.ID || projects[1].ID != f.ID || projects[2].ID != b.ID {
		t.Error("expected insertion order preserved")
	}
	if !projects[1].IsFolder {
		t.Error("expected second entry to be a folder")
	}
}

func TestStore_RemoveProjectCascades(t *testing.T) {
	s := newTestStore(t)

	p, err := s.AddProject("alpha", "/tmp/alpha")
	if err != nil {
		t.Fatal(err)
	}
	wtPath := t.TempDir()
	if _, err := s.AddWorktree(p.ID, "feature", wtPath, "feature"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetExpanded(p.ID, true); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveProject(p.ID); err != nil {
		t.Fatal(err)
	}

	data, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Projects) != 0 || len(data.Worktrees) != 0 || len(data.Expanded) != 0 {
		t.Error("expected project removal to cascade to worktrees and expansion")
	}
}

func TestStore_RemoveUnknownProject(t *testing.T) {
	s := newTestStore(t)
	err := s.RemoveProject("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_FolderCannotOwnWorktrees(t *testing.T) {
	s := newTestStore(t)

	f, err := s.AddFolder("grouping")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddWorktree(f.ID, "feature", t.TempDir(), "feature"); err == nil {
		t.Error("expected error adding worktree to folder")
	}
}

func TestStore_WorktreesFor(t *testing.T) {
	s := newTestStore(t)

	a, err := s.AddProject("alpha", "/tmp/alpha")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.AddProject("beta", "/tmp/beta")
	if err != nil {
		t.Fatal(err)
	}

	w1, err := s.AddWorktree(a.ID, "one", t.TempDir(), "one")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddWorktree(b.ID, "two", t.TempDir(), "two"); err != nil {
		t.Fatal(err)
	}
	w3, err := s.AddWorktree(a.ID, "three", t.TempDir(), "three")
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.WorktreesFor(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 worktrees for alpha, got %d", len(got))
	}
	if got[0].ID != w1.ID || got[1].ID != w3.ID {
		t.Error("expected stored order preserved")
	}

	if _, err := s.WorktreesFor("unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestStore_PrunesOrphanedWorktrees(t *testing.T) {
	s := newTestStore(t)

	p, err := s.AddProject("alpha", "/tmp/alpha")
	if err != nil {
		t.Fatal(err)
	}

	gone := filepath.Join(t.TempDir(), "vanished")
	if err := os.MkdirAll(gone, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddWorktree(p.ID, "vanishing", gone, "vanishing"); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(gone); err != nil {
		t.Fatal(err)
	}

	data, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Worktrees) != 0 {
		t.Error("expected orphaned worktree pruned on load")
	}

	// The cleaned registry is persisted.
	data, err = s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Worktrees) != 0 {
		t.Error("expected prune to persist")
	}
}

func TestStore_ExpandedIDsSnapshot(t *testing.T) {
	s := newTestStore(t)

	a, _ := s.AddProject("alpha", "/tmp/alpha")
	b, _ := s.AddProject("beta", "/tmp/beta")

	if err := s.SetExpanded(a.ID, true); err != nil {
		t.Fatal(err)
	}

	snap, err := s.ExpandedIDs()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap[a.ID]; !ok {
		t.Error("expected alpha expanded")
	}
	if _, ok := snap[b.ID]; ok {
		t.Error("expected beta collapsed")
	}

	// Later changes must not affect the earlier snapshot.
	if err := s.SetExpanded(b.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, ok := snap[b.ID]; ok {
		t.Error("snapshot must be immutable after later changes")
	}
}

func TestStore_SetExpandedToggle(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.AddProject("alpha", "/tmp/alpha")

	if err := s.SetExpanded(a.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetExpanded(a.ID, true); err != nil {
		t.Fatal(err)
	}
	data, _ := s.Load()
	if len(data.Expanded) != 1 {
		t.Errorf("expected no duplicate expansion entries, got %v", data.Expanded)
	}

	if err := s.SetExpanded(a.ID, false); err != nil {
		t.Fatal(err)
	}
	data, _ = s.Load()
	if len(data.Expanded) != 0 {
		t.Errorf("expected collapse to remove entry, got %v", data.Expanded)
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddProject("p", "/tmp/p")
		}()
	}
	wg.Wait()

	projects, err := s.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 8 {
		t.Errorf("expected 8 projects after concurrent adds, got %d", len(projects))
	}
}
