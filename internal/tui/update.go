// pattern: Imperative Shell

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"workbench/internal/logging"
	"workbench/internal/project"
)

// doubleCtrlCWindow is the maximum time between two ctrl+c presses to quit.
const doubleCtrlCWindow = 500 * time.Millisecond

// projectsRefreshedMsg delivers a fresh snapshot of the project tree data.
type projectsRefreshedMsg struct {
	projects  []project.Project
	worktrees map[string][]project.Worktree
	expanded  map[string]struct{}
}

type projectsErrorMsg struct {
	err error
}

// logEntriesMsg delivers log entries from the logging channel.
type logEntriesMsg struct {
	entries []logging.LogEntry
}

// prefetchDoneMsg is sent when the startup warm-up run finishes.
type prefetchDoneMsg struct {
	failures int
}

// expansionSavedMsg reports the outcome of persisting an expand/collapse.
type expansionSavedMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if m.logPanelOpen {
			m.resizeLogViewport()
		}
		return m, nil

	case spinner.TickMsg:
		if m.prefetching {
			var cmd tea.Cmd
			m.statusSpinner, cmd = m.statusSpinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case projectsRefreshedMsg:
		m.projects = msg.projects
		m.worktrees = msg.worktrees
		m.expanded = msg.expanded
		m.err = nil
		m.rebuildTree()

		// First transition to a non-empty list starts the cache warm-up.
		// The orchestrator's latch makes repeat refreshes a no-op.
		if m.prefetcher != nil && m.prefetcher.Trigger(context.Background(), msg.projects, msg.expanded) {
			m.prefetching = true
			m.logger.Debug("startup prefetch triggered", "projects", len(msg.projects))
			return m, tea.Batch(m.waitPrefetch(), m.statusSpinner.Tick)
		}
		return m, nil

	case projectsErrorMsg:
		m.err = msg.err
		m.logger.Error("project refresh failed", "error", msg.err)
		return m, nil

	case prefetchDoneMsg:
		m.prefetching = false
		m.logger.Info("startup prefetch finished", "failures", msg.failures)
		// Caches are warm now; rebuild so rows pick up statuses and counts.
		m.rebuildTree()
		return m, nil

	case logEntriesMsg:
		for _, entry := range msg.entries {
			m.addLogEntry(entry)
		}
		if m.logPanelOpen && m.logReady {
			m.updateLogViewportContent()
		}
		return m, m.consumeLogEntries()

	case expansionSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.logger.Error("saving expansion state failed", "error", msg.err)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlD {
		return m, tea.Quit
	}
	if msg.Type == tea.KeyCtrlC {
		now := time.Now().UnixMilli()
		if m.lastCtrlC != 0 && now-m.lastCtrlC <= doubleCtrlCWindow.Milliseconds() {
			return m, tea.Quit
		}
		m.lastCtrlC = now
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case "down", "j":
		if m.selectedIdx < len(m.treeItems)-1 {
			m.selectedIdx++
		}
		return m, nil

	case "enter", " ":
		return m.toggleExpand()

	case "l":
		m.logPanelOpen = !m.logPanelOpen
		if m.logPanelOpen {
			m.resizeLogViewport()
			m.updateLogViewportContent()
		}
		return m, nil

	case "r":
		return m, m.refreshProjects()

	case "esc":
		if m.err != nil {
			m.err = nil
			return m, nil
		}
		if m.logPanelOpen {
			m.logPanelOpen = false
		}
		return m, nil
	}

	return m, nil
}

// toggleExpand flips the selected project's expansion and persists it.
// The local snapshot updates immediately so the tree does not wait on disk.
func (m Model) toggleExpand() (tea.Model, tea.Cmd) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.treeItems) {
		return m, nil
	}
	item := m.treeItems[m.selectedIdx]
	if item.Type != TreeItemProject {
		return m, nil
	}

	_, isExpanded := m.expanded[item.ID]
	if isExpanded {
		delete(m.expanded, item.ID)
	} else {
		m.expanded[item.ID] = struct{}{}
	}
	m.rebuildTree()

	store := m.store
	projectID := item.ID
	return m, func() tea.Msg {
		return expansionSavedMsg{err: store.SetExpanded(projectID, !isExpanded)}
	}
}

// rebuildTree regenerates visible rows and clamps the selection.
func (m *Model) rebuildTree() {
	m.treeItems = BuildTree(m.projects, m.worktrees, m.expanded)
	if m.selectedIdx >= len(m.treeItems) {
		m.selectedIdx = len(m.treeItems) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

// addLogEntry appends to the ring, dropping the oldest past the cap.
func (m *Model) addLogEntry(entry logging.LogEntry) {
	m.logEntries = append(m.logEntries, entry)
	if len(m.logEntries) > maxLogEntries {
		m.logEntries = m.logEntries[len(m.logEntries)-maxLogEntries:]
	}
}

func (m *Model) resizeLogViewport() {
	layout := ComputeLayout(m.width, m.height, true)
	if !m.logReady {
		m.logViewport = viewport.New(layout.Logs.Width, layout.Logs.Height-1)
		m.logReady = true
	} else {
		m.logViewport.Width = layout.Logs.Width
		m.logViewport.Height = layout.Logs.Height - 1
	}
}

func (m *Model) updateLogViewportContent() {
	if !m.logReady {
		return
	}
	m.logViewport.SetContent(m.renderLogLines())
	m.logViewport.GotoBottom()
}
