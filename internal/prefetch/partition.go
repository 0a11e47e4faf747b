// pattern: Functional Core

package prefetch

import "workbench/internal/project"

// Partition splits projects into a priority tier (expanded in the sidebar)
// and a background tier (everything else). Folders group projects for
// display only and are excluded from both tiers. The partition is stable:
// order within each tier matches the input order.
func Partition(projects []project.Project, expanded map[string]struct{}) (priority, background []project.Project) {
	for _, p := range projects {
		if p.IsFolder {
			continue
		}
		if _, ok := expanded[p.ID]; ok {
			priority = append(priority, p)
		} else {
			background = append(background, p)
		}
	}
	return priority, background
}
