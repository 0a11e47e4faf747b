// pattern: Imperative Shell

package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"workbench/internal/logging"
)

// ErrNotFound is returned when a project or worktree ID is unknown.
var ErrNotFound = errors.New("not found")

const dataFileName = "projects.json"

// Store persists the project registry to projects.json in the data dir.
// All mutations go through a read-modify-write cycle under a single mutex;
// writes are atomic (temp file + rename) so concurrent status fetchers can
// never observe a torn file.
type Store struct {
	dataDir string
	logger  *logging.ScopedLogger
	mu      sync.Mutex
}

// NewStore creates a store rooted at dataDir. The directory is created on
// first save.
func NewStore(dataDir string, logger *logging.ScopedLogger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{dataDir: dataDir, logger: logger}
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, dataFileName)
}

// Load reads the registry from disk. A missing file yields empty data.
// Worktrees whose path no longer exists are pruned and the cleaned
// registry is written back.
func (s *Store) Load() (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (Data, error) {
	contents, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return Data{}, nil
		}
		return Data{}, fmt.Errorf("reading %s: %w", dataFileName, err)
	}

	var data Data
	if err := json.Unmarshal(contents, &data); err != nil {
		return Data{}, fmt.Errorf("parsing %s: %w", dataFileName, err)
	}

	valid := data.Worktrees[:0]
	removed := 0
	for _, w := range data.Worktrees {
		if _, err := os.Stat(w.Path); err != nil {
			s.logger.Warn("removing orphaned worktree", "worktree", w.Name, "path", w.Path)
			removed++
			continue
		}
		valid = append(valid, w)
	}
	data.Worktrees = valid

	if removed > 0 {
		if err := s.saveLocked(data); err != nil {
			return Data{}, err
		}
	}

	return data, nil
}

// Save writes the registry to disk atomically.
func (s *Store) Save(data Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(data)
}

func (s *Store) saveLocked(data Data) error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	contents, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing %s: %w", dataFileName, err)
	}

	tmpPath := s.path() + ".tmp"
	if err := os.WriteFile(tmpPath, contents, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dataFileName, err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		return fmt.Errorf("finalizing %s: %w", dataFileName, err)
	}
	return nil
}

// update runs a read-modify-write cycle under the store mutex.
func (s *Store) update(f func(*Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := f(&data); err != nil {
		return err
	}
	return s.saveLocked(data)
}

// ListProjects returns all projects in sidebar order.
func (s *Store) ListProjects() ([]Project, error) {
	data, err := s.Load()
	if err != nil {
		return nil, err
	}
	return data.Projects, nil
}

// ExpandedIDs returns a snapshot of the expanded project IDs. Callers must
// treat the snapshot as immutable: it reflects the state at call time only.
func (s *Store) ExpandedIDs() (map[string]struct{}, error) {
	data, err := s.Load()
	if err != nil {
		return nil, err
	}
	return data.ExpandedSet(), nil
}

// SetExpanded records whether a project is expanded in the sidebar.
func (s *Store) SetExpanded(projectID string, expanded bool) error {
	return s.update(func(data *Data) error {
		if _, ok := data.FindProject(projectID); !ok {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		filtered := data.Expanded[:0]
		for _, id := range data.Expanded {
			if id != projectID {
				filtered = append(filtered, id)
			}
		}
		data.Expanded = filtered
		if expanded {
			data.Expanded = append(data.Expanded, projectID)
		}
		return nil
	})
}

// AddProject registers a project at the given path and returns it.
func (s *Store) AddProject(name, path string) (Project, error) {
	p := Project{ID: uuid.NewString(), Name: name, Path: path}
	err := s.update(func(data *Data) error {
		data.Projects = append(data.Projects, p)
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	s.logger.Info("project added", "project", p.ID, "name", name, "path", path)
	return p, nil
}

// AddFolder registers a grouping folder and returns it.
func (s *Store) AddFolder(name string) (Project, error) {
	p := Project{ID: uuid.NewString(), Name: name, IsFolder: true}
	err := s.update(func(data *Data) error {
		data.Projects = append(data.Projects, p)
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	s.logger.Info("folder added", "project", p.ID, "name", name)
	return p, nil
}

// RemoveProject removes a project and all worktrees it owns.
func (s *Store) RemoveProject(projectID string) error {
	return s.update(func(data *Data) error {
		projects := data.Projects[:0]
		found := false
		for _, p := range data.Projects {
			if p.ID == projectID {
				found = true
				continue
			}
			projects = append(projects, p)
		}
		if !found {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		data.Projects = projects

		worktrees := data.Worktrees[:0]
		for _, w := range data.Worktrees {
			if w.ProjectID != projectID {
				worktrees = append(worktrees, w)
			}
		}
		data.Worktrees = worktrees

		expanded := data.Expanded[:0]
		for _, id := range data.Expanded {
			if id != projectID {
				expanded = append(expanded, id)
			}
		}
		data.Expanded = expanded
		return nil
	})
}

// AddWorktree registers a worktree under a project and returns it.
// Folders cannot own worktrees.
func (s *Store) AddWorktree(projectID, name, path, branch string) (Worktree, error) {
	w := Worktree{ID: uuid.NewString(), ProjectID: projectID, Name: name, Path: path, Branch: branch}
	err := s.update(func(data *Data) error {
		p, ok := data.FindProject(projectID)
		if !ok {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		if p.IsFolder {
			return fmt.Errorf("folder %s cannot own worktrees", p.Name)
		}
		data.Worktrees = append(data.Worktrees, w)
		return nil
	})
	if err != nil {
		return Worktree{}, err
	}
	s.logger.Info("worktree added", "worktree", w.ID, "project", projectID, "path", path)
	return w, nil
}

// RemoveWorktree removes a worktree from the registry.
func (s *Store) RemoveWorktree(worktreeID string) error {
	return s.update(func(data *Data) error {
		worktrees := data.Worktrees[:0]
		found := false
		for _, w := range data.Worktrees {
			if w.ID == worktreeID {
				found = true
				continue
			}
			worktrees = append(worktrees, w)
		}
		if !found {
			return fmt.Errorf("worktree %s: %w", worktreeID, ErrNotFound)
		}
		data.Worktrees = worktrees
		return nil
	})
}

// WorktreesFor returns the worktrees owned by a project, in stored order.
// Returns ErrNotFound for an unknown project ID.
func (s *Store) WorktreesFor(projectID string) ([]Worktree, error) {
	data, err := s.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := data.FindProject(projectID); !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return data.WorktreesFor(projectID), nil
}
