package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"workbench/internal/config"
	"workbench/internal/gitstatus"
	"workbench/internal/logging"
	"workbench/internal/prefetch"
	"workbench/internal/project"
	"workbench/internal/session"
)

// maxLogEntries caps the in-memory log ring shown in the log panel.
const maxLogEntries = 500

// Deps bundles the shared state the TUI renders from. The caches are the
// same instances the startup prefetch warms; the TUI only ever reads them.
type Deps struct {
	Config     *config.Config
	Store      *project.Store
	Statuses   *gitstatus.Cache
	Sessions   *session.Cache
	Prefetch   *prefetch.Orchestrator
	Logger     *logging.ScopedLogger
	LogEntries <-chan logging.LogEntry
}

// Model represents the TUI application state.
type Model struct {
	width  int
	height int
	styles *Styles

	cfg        *config.Config
	store      *project.Store
	statuses   *gitstatus.Cache
	sessions   *session.Cache
	prefetcher *prefetch.Orchestrator
	logger     *logging.ScopedLogger
	logChan    <-chan logging.LogEntry

	projects  []project.Project
	worktrees map[string][]project.Worktree
	expanded  map[string]struct{}

	treeItems   []TreeItem
	selectedIdx int

	logPanelOpen bool
	logReady     bool
	logViewport  viewport.Model
	logEntries   []logging.LogEntry

	statusSpinner spinner.Model
	prefetching   bool

	lastCtrlC int64 // unix millis of the previous ctrl+c press

	err error
}

// NewModel creates a new TUI model.
func NewModel(deps Deps) Model {
	styles := NewStyles(deps.Config.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.flavor.Mauve().Hex))

	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	return Model{
		styles:        styles,
		cfg:           deps.Config,
		store:         deps.Store,
		statuses:      deps.Statuses,
		sessions:      deps.Sessions,
		prefetcher:    deps.Prefetch,
		logger:        logger,
		logChan:       deps.LogEntries,
		worktrees:     make(map[string][]project.Worktree),
		expanded:      make(map[string]struct{}),
		statusSpinner: sp,
	}
}

// Init returns the initial command to run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshProjects(),
		m.consumeLogEntries(),
		m.statusSpinner.Tick,
	)
}

// refreshProjects returns a command that reloads the project tree data.
func (m Model) refreshProjects() tea.Cmd {
	return func() tea.Msg {
		projects, err := m.store.ListProjects()
		if err != nil {
			return projectsErrorMsg{err: err}
		}
		expanded, err := m.store.ExpandedIDs()
		if err != nil {
			return projectsErrorMsg{err: err}
		}

		worktrees := make(map[string][]project.Worktree)
		for _, p := range projects {
			if p.IsFolder {
				continue
			}
			wts, err := m.store.WorktreesFor(p.ID)
			if err != nil {
				continue
			}
			worktrees[p.ID] = wts
		}

		return projectsRefreshedMsg{
			projects:  projects,
			worktrees: worktrees,
			expanded:  expanded,
		}
	}
}

// consumeLogEntries returns a command that blocks for the next log entry,
// then drains whatever else is already buffered.
func (m Model) consumeLogEntries() tea.Cmd {
	if m.logChan == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-m.logChan
		if !ok {
			return nil
		}
		entries := []logging.LogEntry{entry}
		for {
			select {
			case e, ok := <-m.logChan:
				if !ok {
					return logEntriesMsg{entries: entries}
				}
				entries = append(entries, e)
			default:
				return logEntriesMsg{entries: entries}
			}
		}
	}
}

// waitPrefetch returns a command that resolves when the warm-up run finishes.
func (m Model) waitPrefetch() tea.Cmd {
	orch := m.prefetcher
	if orch == nil {
		return nil
	}
	return func() tea.Msg {
		<-orch.Done()
		return prefetchDoneMsg{failures: len(orch.Failures())}
	}
}
