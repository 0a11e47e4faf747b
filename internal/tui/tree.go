// pattern: Functional Core

package tui

import "workbench/internal/project"

// TreeItemType discriminates the rows of the project tree.
type TreeItemType int

const (
	TreeItemFolder TreeItemType = iota
	TreeItemProject
	TreeItemWorktree
)

// TreeItem is one visible row in the tree. Worktree rows carry both their
// own ID and the owning project's ID so key handlers can act without a
// second lookup.
type TreeItem struct {
	Type      TreeItemType
	ID        string
	ProjectID string
	Name      string
	Path      string
	Branch    string
	Expanded  bool
}

// BuildTree flattens projects and their worktrees into visible rows.
// Collapsed projects contribute a single row; expanded projects are followed
// by one indented row per worktree. Order follows the stored project order.
func BuildTree(projects []project.Project, worktrees map[string][]project.Worktree, expanded map[string]struct{}) []TreeItem {
	var items []TreeItem
	for _, p := range projects {
		if p.IsFolder {
			items = append(items, TreeItem{
				Type: TreeItemFolder,
				ID:   p.ID,
				Name: p.Name,
			})
			continue
		}

		_, isExpanded := expanded[p.ID]
		items = append(items, TreeItem{
			Type:     TreeItemProject,
			ID:       p.ID,
			Name:     p.Name,
			Path:     p.Path,
			Expanded: isExpanded,
		})

		if !isExpanded {
			continue
		}
		for _, wt := range worktrees[p.ID] {
			items = append(items, TreeItem{
				Type:      TreeItemWorktree,
				ID:        wt.ID,
				ProjectID: p.ID,
				Name:      wt.Name,
				Path:      wt.Path,
				Branch:    wt.Branch,
			})
		}
	}
	return items
}
