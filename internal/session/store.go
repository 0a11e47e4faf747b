// pattern: Imperative Shell

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"workbench/internal/logging"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("session not found")

// Session is the persisted metadata for one agent chat session.
type Session struct {
	ID         string    `json:"id"`
	WorktreeID string    `json:"worktree_id"`
	Name       string    `json:"name"`
	Agent      string    `json:"agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists sessions under the data dir:
//
//	<dataDir>/sessions/<sessionID>/metadata.json
//	<dataDir>/sessions/<sessionID>/transcript.jsonl
//	<dataDir>/index/<worktreeID>.json
//
// The per-worktree index keeps listing cheap without scanning every
// session directory.
type Store struct {
	dataDir string
	logger  *logging.ScopedLogger
	mu      sync.Mutex
}

// worktreeIndex is the persisted shape of an index file.
type worktreeIndex struct {
	WorktreeID string   `json:"worktree_id"`
	SessionIDs []string `json:"session_ids"`
}

// NewStore creates a session store rooted at dataDir.
func NewStore(dataDir string, logger *logging.ScopedLogger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{dataDir: dataDir, logger: logger}
}

func (s *Store) sessionDir(sessionID string) string {
	return filepath.Join(s.dataDir, "sessions", sessionID)
}

func (s *Store) metadataPath(sessionID string) string {
	return filepath.Join(s.sessionDir(sessionID), "metadata.json")
}

// TranscriptPath returns the JSONL transcript path for a session.
func (s *Store) TranscriptPath(sessionID string) string {
	return filepath.Join(s.sessionDir(sessionID), "transcript.jsonl")
}

func (s *Store) indexPath(worktreeID string) string {
	return filepath.Join(s.dataDir, "index", worktreeID+".json")
}

// Create makes a new session under a worktree and adds it to the index.
func (s *Store) Create(worktreeID, name, agent string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := Session{
		ID:         uuid.NewString(),
		WorktreeID: worktreeID,
		Name:       name,
		Agent:      agent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.saveMetadataLocked(sess); err != nil {
		return Session{}, err
	}

	idx, err := s.loadIndexLocked(worktreeID)
	if err != nil {
		return Session{}, err
	}
	idx.SessionIDs = append(idx.SessionIDs, sess.ID)
	if err := s.saveIndexLocked(idx); err != nil {
		return Session{}, err
	}

	s.logger.Info("session created", "session", sess.ID, "worktree", worktreeID, "name", name)
	return sess, nil
}

// Get loads one session's metadata.
func (s *Store) Get(sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMetadataLocked(sessionID)
}

// Touch bumps a session's UpdatedAt, e.g. after transcript activity.
func (s *Store) Touch(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadMetadataLocked(sessionID)
	if err != nil {
		return err
	}
	sess.UpdatedAt = time.Now().UTC()
	return s.saveMetadataLocked(sess)
}

// Delete removes a session's data and its index entry.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadMetadataLocked(sessionID)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil {
		return fmt.Errorf("removing session data: %w", err)
	}

	idx, err := s.loadIndexLocked(sess.WorktreeID)
	if err != nil {
		return err
	}
	ids := idx.SessionIDs[:0]
	for _, id := range idx.SessionIDs {
		if id != sessionID {
			ids = append(ids, id)
		}
	}
	idx.SessionIDs = ids
	return s.saveIndexLocked(idx)
}

// ListByWorktree returns a worktree's sessions, most recently updated first.
// Index entries whose metadata is missing are skipped and pruned.
func (s *Store) ListByWorktree(worktreeID string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndexLocked(worktreeID)
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(idx.SessionIDs))
	kept := idx.SessionIDs[:0]
	pruned := 0
	for _, id := range idx.SessionIDs {
		sess, err := s.loadMetadataLocked(id)
		if err != nil {
			s.logger.Warn("pruning stale index entry", "session", id, "worktree", worktreeID)
			pruned++
			continue
		}
		sessions = append(sessions, sess)
		kept = append(kept, id)
	}

	if pruned > 0 {
		idx.SessionIDs = kept
		if err := s.saveIndexLocked(idx); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *Store) loadMetadataLocked(sessionID string) (Session, error) {
	contents, err := os.ReadFile(s.metadataPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return Session{}, fmt.Errorf("reading session metadata: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(contents, &sess); err != nil {
		return Session{}, fmt.Errorf("parsing session metadata: %w", err)
	}
	return sess, nil
}

func (s *Store) saveMetadataLocked(sess Session) error {
	if err := os.MkdirAll(s.sessionDir(sess.ID), 0755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	contents, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing session metadata: %w", err)
	}

	path := s.metadataPath(sess.ID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, contents, 0644); err != nil {
		return fmt.Errorf("writing session metadata: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("finalizing session metadata: %w", err)
	}
	return nil
}

func (s *Store) loadIndexLocked(worktreeID string) (worktreeIndex, error) {
	contents, err := os.ReadFile(s.indexPath(worktreeID))
	if err != nil {
		if os.IsNotExist(err) {
			return worktreeIndex{WorktreeID: worktreeID}, nil
		}
		return worktreeIndex{}, fmt.Errorf("reading worktree index: %w", err)
	}

	var idx worktreeIndex
	if err := json.Unmarshal(contents, &idx); err != nil {
		return worktreeIndex{}, fmt.Errorf("parsing worktree index: %w", err)
	}
	return idx, nil
}

func (s *Store) saveIndexLocked(idx worktreeIndex) error {
	if err := os.MkdirAll(filepath.Join(s.dataDir, "index"), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	contents, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("serializing worktree index: %w", err)
	}

	path := s.indexPath(idx.WorktreeID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, contents, 0644); err != nil {
		return fmt.Errorf("writing worktree index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("finalizing worktree index: %w", err)
	}
	return nil
}
