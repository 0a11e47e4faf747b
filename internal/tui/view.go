// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"workbench/internal/logging"
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	layout := ComputeLayout(m.width, m.height, m.logPanelOpen)

	var sections []string
	sections = append(sections, m.renderHeader(layout))
	sections = append(sections, m.renderTree(layout))

	if m.logPanelOpen {
		separator := m.styles.HelpStyle().Render(strings.Repeat("─", layout.Separator.Width))
		sections = append(sections, separator)
		sections = append(sections, m.renderLogPanel(layout))
	}

	sections = append(sections, m.renderStatusBar(layout))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(layout Layout) string {
	title := m.styles.TitleStyle().Render("Workbench")
	subtitle := m.styles.SubtitleStyle().Render(fmt.Sprintf("%d projects", countProjects(m.treeItems)))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle)
}

func countProjects(items []TreeItem) int {
	n := 0
	for _, item := range items {
		if item.Type == TreeItemProject {
			n++
		}
	}
	return n
}

// renderTree renders the project tree rows.
func (m Model) renderTree(layout Layout) string {
	if len(m.treeItems) == 0 {
		return lipgloss.NewStyle().
			Width(layout.Tree.Width).
			Height(layout.Tree.Height).
			Padding(1).
			Render(m.styles.InfoStyle().Render("No projects yet."))
	}

	var lines []string
	for i, item := range m.treeItems {
		lines = append(lines, m.renderTreeItem(item, i == m.selectedIdx))
	}

	return lipgloss.NewStyle().
		Width(layout.Tree.Width).
		Height(layout.Tree.Height).
		Render(strings.Join(lines, "\n"))
}

// renderTreeItem renders a single row (folder, project, or worktree).
func (m Model) renderTreeItem(item TreeItem, selected bool) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}

	var line string
	switch item.Type {
	case TreeItemFolder:
		line = cursor + m.styles.FolderStyle().Render("▪ "+item.Name)

	case TreeItemProject:
		arrow := "▸"
		if item.Expanded {
			arrow = "▾"
		}
		line = fmt.Sprintf("%s%s %s %s", cursor, arrow, item.Name, m.renderStatusSummary(item.ID))

	case TreeItemWorktree:
		branch := ""
		if item.Branch != "" {
			branch = " " + m.styles.BranchStyle().Render(item.Branch)
		}
		line = fmt.Sprintf("%s    %s%s %s", cursor, item.Name, branch, m.renderSessionSummary(item.ID))
	}

	if selected {
		line = m.styles.TreeSelectedStyle().Render(line)
	}
	return line
}

// renderStatusSummary formats the cached git status for a project row. Cold
// entries show a spinner while the warm-up run is still in flight.
func (m Model) renderStatusSummary(projectID string) string {
	entry, ok := m.statuses.Get(projectID)
	if !ok {
		if m.prefetching {
			return m.statusSpinner.View()
		}
		return m.styles.HelpStyle().Render("–")
	}

	st := entry.Status
	parts := []string{m.styles.BranchStyle().Render(st.Branch)}

	if st.Ahead > 0 {
		parts = append(parts, m.styles.AccentStyle().Render(fmt.Sprintf("↑%d", st.Ahead)))
	}
	if st.Behind > 0 {
		parts = append(parts, m.styles.AccentStyle().Render(fmt.Sprintf("↓%d", st.Behind)))
	}

	if st.Clean() {
		parts = append(parts, m.styles.CleanStyle().Render("✓"))
	} else {
		changed := st.Staged + st.Unstaged
		if changed > 0 {
			parts = append(parts, m.styles.DirtyStyle().Render(fmt.Sprintf("~%d", changed)))
		}
		if st.Untracked > 0 {
			parts = append(parts, m.styles.DirtyStyle().Render(fmt.Sprintf("?%d", st.Untracked)))
		}
		if st.Conflicted > 0 {
			parts = append(parts, m.styles.ErrorStyle().Render(fmt.Sprintf("!%d", st.Conflicted)))
		}
	}

	return strings.Join(parts, " ")
}

// renderSessionSummary formats the cached session count for a worktree row.
func (m Model) renderSessionSummary(worktreeID string) string {
	entry, ok := m.sessions.Get(worktreeID)
	if !ok {
		if m.prefetching {
			return m.statusSpinner.View()
		}
		return m.styles.HelpStyle().Render("–")
	}
	n := len(entry.Sessions)
	if n == 1 {
		return m.styles.HelpStyle().Render("1 session")
	}
	return m.styles.HelpStyle().Render(fmt.Sprintf("%d sessions", n))
}

// renderLogPanel renders the log panel content.
func (m Model) renderLogPanel(layout Layout) string {
	header := m.styles.PanelHeaderStyle().Render(" Logs")

	if m.logReady {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.logViewport.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().
			Width(layout.Logs.Width).
			Height(layout.Logs.Height-1).
			Render(m.renderLogLines()),
	)
}

// renderLogLines formats the buffered log entries for the viewport.
func (m Model) renderLogLines() string {
	if len(m.logEntries) == 0 {
		return m.styles.InfoStyle().Render("No log entries")
	}
	var lines []string
	for _, entry := range m.logEntries {
		lines = append(lines, m.renderLogEntry(entry))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogEntry(entry logging.LogEntry) string {
	ts := m.styles.LogTimestampStyle().Render(entry.Timestamp.Format("15:04:05"))

	var level string
	switch entry.Level {
	case "DEBUG":
		level = m.styles.LogDebugStyle().Render("DEBUG")
	case "INFO":
		level = m.styles.LogInfoStyle().Render("INFO")
	case "WARN":
		level = m.styles.LogWarnStyle().Render("WARN")
	case "ERROR":
		level = m.styles.LogErrorStyle().Render("ERROR")
	default:
		level = m.styles.LogInfoStyle().Render(entry.Level)
	}

	scope := m.styles.LogScopeStyle().Render("[" + entry.Scope + "]")

	// Session transcripts can carry terminal escape sequences; strip them
	// before mixing the text into our own styled output.
	message := ansi.Strip(entry.Message)

	return fmt.Sprintf("%s %s %s %s", ts, level, scope, message)
}

// renderStatusBar renders the bottom status line.
func (m Model) renderStatusBar(layout Layout) string {
	if m.err != nil {
		return m.styles.ErrorStyle().Render("error: " + m.err.Error())
	}

	if m.prefetching {
		return m.styles.StatusBarStyle().Render(m.statusSpinner.View() + " warming caches…")
	}

	help := "↑/↓ move · enter expand · l logs · r refresh · q quit"
	return m.styles.HelpStyle().Render(help)
}
