// pattern: Functional Core

package tui

// Region defines a rectangular area within the terminal.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Layout holds computed regions for all UI components.
type Layout struct {
	Header    Region // Title + subtitle (2 lines)
	Tree      Region // Project tree (dynamic)
	Separator Region // Separator between tree and logs (1 line when logs open)
	Logs      Region // Log panel when open (40% of content area)
	StatusBar Region // Status bar (1 line)
}

const (
	headerHeight    = 2
	statusBarHeight = 1
	separatorHeight = 1
)

// ComputeLayout calculates regions based on terminal dimensions. When
// logPanelOpen is true the content area splits 60/40 vertically (tree/logs).
func ComputeLayout(width, height int, logPanelOpen bool) Layout {
	availableHeight := height - headerHeight - statusBarHeight
	if availableHeight < 4 {
		availableHeight = 4
	}

	var treeHeight, logsHeight int
	if logPanelOpen {
		logsHeight = int(float64(availableHeight) * 0.4)
		treeHeight = availableHeight - logsHeight - separatorHeight
		if treeHeight < 1 {
			treeHeight = 1
		}
	} else {
		treeHeight = availableHeight
	}

	y := 0
	header := Region{X: 0, Y: y, Width: width, Height: headerHeight}
	y += headerHeight

	tree := Region{X: 0, Y: y, Width: width, Height: treeHeight}
	y += treeHeight

	var separator, logs Region
	if logPanelOpen {
		separator = Region{X: 0, Y: y, Width: width, Height: separatorHeight}
		y += separatorHeight

		logs = Region{X: 0, Y: y, Width: width, Height: logsHeight}
		y += logsHeight
	}

	statusBar := Region{X: 0, Y: y, Width: width, Height: statusBarHeight}

	return Layout{
		Header:    header,
		Tree:      tree,
		Separator: separator,
		Logs:      logs,
		StatusBar: statusBar,
	}
}
