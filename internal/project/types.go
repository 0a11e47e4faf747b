// pattern: Functional Core

package project

// Project is an entry in the workspace sidebar. A folder groups other
// projects for display only: it has no path, owns no worktrees, and is
// excluded from all fetch work.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	IsFolder bool   `json:"is_folder,omitempty"`
}

// Worktree is a git worktree owned by exactly one project.
type Worktree struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Branch    string `json:"branch,omitempty"`
}

// Data is the persisted shape of projects.json. Project order is the
// user's sidebar order and is preserved across load/save.
type Data struct {
	Projects  []Project  `json:"projects"`
	Worktrees []Worktree `json:"worktrees"`
	Expanded  []string   `json:"expanded,omitempty"`
}

// ExpandedSet returns the expanded project IDs as a set snapshot.
func (d Data) ExpandedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(d.Expanded))
	for _, id := range d.Expanded {
		set[id] = struct{}{}
	}
	return set
}

// WorktreesFor returns the worktrees owned by the given project, in
// stored order.
func (d Data) WorktreesFor(projectID string) []Worktree {
	var out []Worktree
	for _, w := range d.Worktrees {
		if w.ProjectID == projectID {
			out = append(out, w)
		}
	}
	return out
}

// FindProject returns the project with the given ID.
func (d Data) FindProject(id string) (Project, bool) {
	for _, p := range d.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}
