package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"workbench/internal/config"
	"workbench/internal/gitstatus"
	"workbench/internal/logging"
	"workbench/internal/prefetch"
	"workbench/internal/project"
	"workbench/internal/session"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string, string) error { return nil }

type nopLister struct{}

func (nopLister) WorktreesFor(string) ([]project.Worktree, error) { return nil, nil }

type nopSessions struct{}

func (nopSessions) Prefetch(context.Context, string, string) error { return nil }

func newTestModel(t *testing.T) Model {
	t.Helper()
	store := project.NewStore(t.TempDir(), logging.NopLogger())
	orch := prefetch.New(nopFetcher{}, nopLister{}, nopSessions{}, 3, logging.NopLogger())

	m := NewModel(Deps{
		Config:   &config.Config{Theme: "mocha"},
		Store:    store,
		Statuses: gitstatus.NewCache(),
		Sessions: session.NewCache(),
		Prefetch: orch,
		Logger:   logging.NopLogger(),
	})
	m.width = 80
	m.height = 24
	return m
}

func updateModel(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, expected Model", updated)
	}
	return next, cmd
}

func TestUpdate_RefreshTriggersPrefetch(t *testing.T) {
	m := newTestModel(t)

	projects := []project.Project{{ID: "p1", Name: "alpha"}}
	m, cmd := updateModel(t, m, projectsRefreshedMsg{
		projects: projects,
		expanded: map[string]struct{}{},
	})

	if !m.prefetching {
		t.Error("expected prefetching after first non-empty refresh")
	}
	if cmd == nil {
		t.Error("expected a command waiting for prefetch completion")
	}

	select {
	case <-m.prefetcher.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("prefetch run did not complete")
	}

	// A second, equivalent refresh is a no-op for the warm-up.
	m.prefetching = false
	m, cmd = updateModel(t, m, projectsRefreshedMsg{
		projects: projects,
		expanded: map[string]struct{}{},
	})
	if m.prefetching {
		t.Error("second refresh must not restart the warm-up")
	}
	if cmd != nil {
		t.Error("expected no command on second refresh")
	}
}

func TestUpdate_EmptyRefreshDoesNotTrigger(t *testing.T) {
	m := newTestModel(t)

	m, _ = updateModel(t, m, projectsRefreshedMsg{expanded: map[string]struct{}{}})

	if m.prefetching {
		t.Error("empty project list must not start the warm-up")
	}
	if m.prefetcher.State() != prefetch.NotStarted {
		t.Errorf("expected NotStarted, got %s", m.prefetcher.State())
	}
}

func TestUpdate_NavigationClamps(t *testing.T) {
	m := newTestModel(t)
	m.projects = []project.Project{{ID: "p1", Name: "a"}, {ID: "p2", Name: "b"}}
	m.rebuildTree()

	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selectedIdx != 0 {
		t.Errorf("up at top must stay at 0, got %d", m.selectedIdx)
	}

	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedIdx != 1 {
		t.Errorf("down at bottom must stay at last row, got %d", m.selectedIdx)
	}
}

func TestUpdate_ToggleExpandPersists(t *testing.T) {
	m := newTestModel(t)

	p, err := m.store.AddProject("alpha", "/tmp/alpha")
	if err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	if _, err := m.store.AddWorktree(p.ID, "main", "/tmp/alpha", "main"); err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}

	m.projects, _ = m.store.ListProjects()
	m.worktrees = map[string][]project.Worktree{}
	wts, _ := m.store.WorktreesFor(p.ID)
	m.worktrees[p.ID] = wts
	m.rebuildTree()

	m, cmd := updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected persistence command")
	}
	if msg, ok := cmd().(expansionSavedMsg); !ok || msg.err != nil {
		t.Fatalf("expected clean expansionSavedMsg, got %v", msg)
	}

	expanded, err := m.store.ExpandedIDs()
	if err != nil {
		t.Fatalf("ExpandedIDs: %v", err)
	}
	if _, ok := expanded[p.ID]; !ok {
		t.Error("expansion must be persisted to the store")
	}
	if len(m.treeItems) != 2 {
		t.Errorf("expected project + worktree rows, got %d", len(m.treeItems))
	}

	// Toggle back.
	m, cmd = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if msg, ok := cmd().(expansionSavedMsg); !ok || msg.err != nil {
		t.Fatalf("expected clean expansionSavedMsg, got %v", msg)
	}
	expanded, _ = m.store.ExpandedIDs()
	if _, ok := expanded[p.ID]; ok {
		t.Error("collapse must be persisted to the store")
	}
}

func TestUpdate_QuitKeys(t *testing.T) {
	m := newTestModel(t)

	_, cmd := updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command for q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q must quit")
	}

	_, cmd = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+d must quit")
	}
}

func TestUpdate_DoubleCtrlCQuits(t *testing.T) {
	m := newTestModel(t)

	m, cmd := updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Error("single ctrl+c must not quit")
	}

	_, cmd = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command for double ctrl+c")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("double ctrl+c must quit")
	}
}

func TestUpdate_LogEntriesBounded(t *testing.T) {
	m := newTestModel(t)

	entries := make([]logging.LogEntry, maxLogEntries+50)
	for i := range entries {
		entries[i] = logging.LogEntry{Level: "INFO", Message: "entry"}
	}
	m, _ = updateModel(t, m, logEntriesMsg{entries: entries})

	if len(m.logEntries) != maxLogEntries {
		t.Errorf("expected log ring capped at %d, got %d", maxLogEntries, len(m.logEntries))
	}
}

func TestUpdate_LogPanelToggle(t *testing.T) {
	m := newTestModel(t)

	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	if !m.logPanelOpen {
		t.Error("l must open the log panel")
	}

	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.logPanelOpen {
		t.Error("esc must close the log panel")
	}
}
