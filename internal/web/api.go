// pattern: Imperative Shell

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"workbench/internal/project"
	"workbench/internal/session"
)

// ProjectResponse is the JSON representation of a registered project.
type ProjectResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Path      string             `json:"path"`
	IsFolder  bool               `json:"is_folder"`
	Expanded  bool               `json:"expanded"`
	Status    *StatusResponse    `json:"status,omitempty"`
	Worktrees []WorktreeResponse `json:"worktrees"`
}

// StatusResponse is the JSON representation of a warmed git status.
type StatusResponse struct {
	Branch     string    `json:"branch"`
	Upstream   string    `json:"upstream,omitempty"`
	Ahead      int       `json:"ahead"`
	Behind     int       `json:"behind"`
	Staged     int       `json:"staged"`
	Unstaged   int       `json:"unstaged"`
	Untracked  int       `json:"untracked"`
	Conflicted int       `json:"conflicted"`
	Clean      bool      `json:"clean"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// WorktreeResponse is the JSON representation of a worktree.
type WorktreeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Branch string `json:"branch"`
}

// SessionResponse is the JSON representation of an agent session.
type SessionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Agent     string    `json:"agent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) statusResponseFor(projectID string) *StatusResponse {
	entry, ok := s.statuses.Get(projectID)
	if !ok {
		return nil
	}
	st := entry.Status
	return &StatusResponse{
		Branch:     st.Branch,
		Upstream:   st.Upstream,
		Ahead:      st.Ahead,
		Behind:     st.Behind,
		Staged:     st.Staged,
		Unstaged:   st.Unstaged,
		Untracked:  st.Untracked,
		Conflicted: st.Conflicted,
		Clean:      st.Clean(),
		FetchedAt:  entry.FetchedAt,
	}
}

func worktreeResponses(worktrees []project.Worktree) []WorktreeResponse {
	result := make([]WorktreeResponse, 0, len(worktrees))
	for _, wt := range worktrees {
		result = append(result, WorktreeResponse{
			ID:     wt.ID,
			Name:   wt.Name,
			Path:   wt.Path,
			Branch: wt.Branch,
		})
	}
	return result
}

func sessionResponses(sessions []session.Session) []SessionResponse {
	result := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, SessionResponse{
			ID:        sess.ID,
			Name:      sess.Name,
			Agent:     sess.Agent,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}
	return result
}

// handleListProjects handles GET /api/projects. Statuses come from the warm
// cache; cold projects simply omit the status field.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	expanded, err := s.store.ExpandedIDs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load expansion state")
		return
	}

	result := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp := ProjectResponse{
			ID:        p.ID,
			Name:      p.Name,
			Path:      p.Path,
			IsFolder:  p.IsFolder,
			Worktrees: []WorktreeResponse{},
		}
		_, resp.Expanded = expanded[p.ID]

		if !p.IsFolder {
			resp.Status = s.statusResponseFor(p.ID)
			if wts, err := s.store.WorktreesFor(p.ID); err == nil {
				resp.Worktrees = worktreeResponses(wts)
			}
		}
		result = append(result, resp)
	}

	writeJSON(w, http.StatusOK, result)
}

// AddProjectRequest is the JSON body for registering a project or folder.
type AddProjectRequest struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsFolder bool   `json:"is_folder"`
}

// handleAddProject handles POST /api/projects.
func (s *Server) handleAddProject(w http.ResponseWriter, r *http.Request) {
	var req AddProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var (
		p   project.Project
		err error
	)
	if req.IsFolder {
		p, err = s.store.AddFolder(req.Name)
	} else {
		if req.Path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		p, err = s.store.AddProject(req.Name, req.Path)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add project")
		return
	}

	s.logger.Info("project added", "id", p.ID, "name", p.Name, "folder", p.IsFolder)
	s.events.Notify()
	s.notifyTUI(ProjectsChangedMsg{})
	writeJSON(w, http.StatusCreated, ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Path:      p.Path,
		IsFolder:  p.IsFolder,
		Worktrees: []WorktreeResponse{},
	})
}

// handleRemoveProject handles DELETE /api/projects/{id}.
func (s *Server) handleRemoveProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.RemoveProject(id); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to remove project")
		return
	}

	s.statuses.Invalidate(id)
	s.logger.Info("project removed", "id", id)
	s.events.Notify()
	s.notifyTUI(ProjectsChangedMsg{})
	w.WriteHeader(http.StatusNoContent)
}

// handleProjectStatus handles GET /api/projects/{id}/status. Returns the
// cached status when warm; with ?refresh=1 it fetches fresh first.
func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}
	p, ok := data.FindProject(id)
	if !ok || p.IsFolder {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	if r.URL.Query().Get("refresh") == "1" {
		if err := s.fetcher.Fetch(r.Context(), p.ID, p.Path); err != nil {
			s.logger.Warn("on-demand status fetch failed", "project", p.ID, "error", err)
		}
	}

	resp := s.statusResponseFor(p.ID)
	if resp == nil {
		writeError(w, http.StatusNotFound, "status not warmed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetExpandedRequest is the JSON body for toggling a project's expansion.
type SetExpandedRequest struct {
	Expanded bool `json:"expanded"`
}

// handleSetExpanded handles PUT /api/projects/{id}/expanded.
func (s *Server) handleSetExpanded(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req SetExpandedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.SetExpanded(id, req.Expanded); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save expansion state")
		return
	}

	s.events.Notify()
	s.notifyTUI(ProjectsChangedMsg{})
	w.WriteHeader(http.StatusNoContent)
}

// WorktreeListResponse pairs registered worktrees with git worktrees found
// on disk that the registry does not know about.
type WorktreeListResponse struct {
	Worktrees    []WorktreeResponse `json:"worktrees"`
	Unregistered []string           `json:"unregistered"`
}

// handleListWorktrees handles GET /api/projects/{id}/worktrees.
func (s *Server) handleListWorktrees(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, err := s.store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}
	p, ok := data.FindProject(id)
	if !ok || p.IsFolder {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	registered := data.WorktreesFor(id)
	known := make(map[string]struct{}, len(registered))
	for _, wt := range registered {
		known[wt.Path] = struct{}{}
	}

	// git worktrees created outside the app show up as unregistered.
	unregistered := []string{}
	for _, gwt := range project.ListGitWorktrees(p.Path) {
		if _, ok := known[gwt.Path]; !ok {
			unregistered = append(unregistered, gwt.Path)
		}
	}

	writeJSON(w, http.StatusOK, WorktreeListResponse{
		Worktrees:    worktreeResponses(registered),
		Unregistered: unregistered,
	})
}

// CreateWorktreeRequest is the JSON body for creating a worktree.
type CreateWorktreeRequest struct {
	Name string `json:"name"`
}

// handleCreateWorktree handles POST /api/projects/{id}/worktrees. It runs
// git worktree add and registers the result in the store.
func (s *Server) handleCreateWorktree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req CreateWorktreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.worktreeOps.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}
	p, ok := data.FindProject(id)
	if !ok || p.IsFolder {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	wtPath, err := s.worktreeOps.Create(p.Path, s.worktreesDir, p.Name, req.Name)
	if err != nil {
		s.logger.Error("worktree create failed", "project", p.ID, "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create worktree")
		return
	}

	wt, err := s.store.AddWorktree(p.ID, req.Name, wtPath, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register worktree")
		return
	}

	s.logger.Info("worktree created", "project", p.ID, "worktree", wt.ID, "path", wtPath)
	s.events.Notify()
	s.notifyTUI(ProjectsChangedMsg{})
	writeJSON(w, http.StatusCreated, WorktreeResponse{
		ID:     wt.ID,
		Name:   wt.Name,
		Path:   wt.Path,
		Branch: wt.Branch,
	})
}

// handleDeleteWorktree handles DELETE /api/worktrees/{id}.
func (s *Server) handleDeleteWorktree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, err := s.store.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}

	var wt project.Worktree
	found := false
	for _, candidate := range data.Worktrees {
		if candidate.ID == id {
			wt = candidate
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "worktree not found")
		return
	}

	p, ok := data.FindProject(wt.ProjectID)
	if !ok {
		writeError(w, http.StatusInternalServerError, "worktree has no project")
		return
	}

	if err := s.worktreeOps.Destroy(p.Path, wt.Path, wt.Branch); err != nil {
		s.logger.Error("worktree destroy failed", "worktree", wt.ID, "error", err)
		writeError(w, http.StatusConflict, "failed to remove worktree (unmerged changes?)")
		return
	}

	if err := s.store.RemoveWorktree(wt.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to unregister worktree")
		return
	}

	s.sessionCache.Invalidate(wt.ID)
	s.logger.Info("worktree removed", "worktree", wt.ID)
	s.events.Notify()
	s.notifyTUI(ProjectsChangedMsg{})
	w.WriteHeader(http.StatusNoContent)
}

// handleListSessions handles GET /api/worktrees/{id}/sessions. The store is
// the source of truth; the warm cache is refreshed as a side effect so later
// reads stay cheap.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sessions, err := s.sessions.ListByWorktree(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	s.sessionCache.Set(id, sessions)
	writeJSON(w, http.StatusOK, sessionResponses(sessions))
}

// CreateSessionRequest is the JSON body for creating a session.
type CreateSessionRequest struct {
	Name  string `json:"name"`
	Agent string `json:"agent"`
}

// handleCreateSession handles POST /api/worktrees/{id}/sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sess, err := s.sessions.Create(id, req.Name, req.Agent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.sessionCache.Invalidate(id)
	s.startTailer(sess.ID)
	s.logger.Info("session created", "worktree", id, "session", sess.ID)
	s.events.Notify()
	s.notifyTUI(SessionsChangedMsg{WorktreeID: id})
	writeJSON(w, http.StatusCreated, SessionResponse{
		ID:        sess.ID,
		Name:      sess.Name,
		Agent:     sess.Agent,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	})
}

// handleDeleteSession handles DELETE /api/sessions/{id}.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	if err := s.sessions.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	s.stopTailer(id)
	s.sessionCache.Invalidate(sess.WorktreeID)
	s.logger.Info("session deleted", "session", id, "worktree", sess.WorktreeID)
	s.events.Notify()
	s.notifyTUI(SessionsChangedMsg{WorktreeID: sess.WorktreeID})
	w.WriteHeader(http.StatusNoContent)
}

// ProjectsChangedMsg is sent to the TUI after project or worktree mutations.
type ProjectsChangedMsg struct{}

// SessionsChangedMsg is sent to the TUI after session mutations.
type SessionsChangedMsg struct {
	WorktreeID string
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
