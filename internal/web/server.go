// pattern: Imperative Shell

package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"workbench/internal/gitstatus"
	"workbench/internal/logging"
	"workbench/internal/project"
	"workbench/internal/session"
)

// worktreeOps abstracts git worktree operations for testability.
type worktreeOps interface {
	ValidateName(name string) error
	Create(projectPath, baseDir, projectName, name string) (string, error)
	Destroy(projectPath, wtDir, branch string) error
}

// realWorktreeOps delegates to the project package functions.
type realWorktreeOps struct{}

func (realWorktreeOps) ValidateName(name string) error {
	return project.ValidateWorktreeName(name)
}

func (realWorktreeOps) Create(projectPath, baseDir, projectName, name string) (string, error) {
	return project.CreateWorktree(projectPath, baseDir, projectName, name)
}

func (realWorktreeOps) Destroy(projectPath, wtDir, branch string) error {
	return project.DestroyWorktree(projectPath, wtDir, branch)
}

// Server exposes the project registry, caches, and terminals over HTTP.
type Server struct {
	httpServer   *http.Server
	store        *project.Store
	sessions     *session.Store
	statuses     *gitstatus.Cache
	sessionCache *session.Cache
	fetcher      *gitstatus.Fetcher
	worktreesDir string
	notifyTUI    func(any)
	logger       *logging.ScopedLogger
	addr         string
	listener     net.Listener
	events       *eventBroker
	worktreeOps  worktreeOps

	sink    *logging.ChannelSink
	tailMu  sync.Mutex
	tailers map[string]func()
}

// Config holds web server configuration.
type Config struct {
	Bind string
	Port int
}

// Deps bundles the state the server reads and mutates. NotifyTUI is called
// after mutations to keep the TUI in sync via p.Send(); it may be nil. Sink,
// when set, receives streamed transcript lines for sessions created through
// the API.
type Deps struct {
	Store        *project.Store
	Sessions     *session.Store
	Statuses     *gitstatus.Cache
	SessionCache *session.Cache
	Fetcher      *gitstatus.Fetcher
	WorktreesDir string
	NotifyTUI    func(any)
	Sink         *logging.ChannelSink
}

// New creates a web server. logProvider must implement
// logging.LoggerProvider (both *logging.Manager and *logging.TestLogManager
// satisfy this interface).
func New(cfg Config, deps Deps, logProvider logging.LoggerProvider) *Server {
	logger := logProvider.For("web")
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)

	mux := http.NewServeMux()

	notify := deps.NotifyTUI
	if notify == nil {
		notify = func(any) {}
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:        deps.Store,
		sessions:     deps.Sessions,
		statuses:     deps.Statuses,
		sessionCache: deps.SessionCache,
		fetcher:      deps.Fetcher,
		worktreesDir: deps.WorktreesDir,
		notifyTUI:    notify,
		logger:       logger,
		addr:         addr,
		events:       newEventBroker(),
		worktreeOps:  realWorktreeOps{},
		sink:         deps.Sink,
		tailers:      make(map[string]func()),
	}

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleAddProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleRemoveProject)
	mux.HandleFunc("GET /api/projects/{id}/status", s.handleProjectStatus)
	mux.HandleFunc("PUT /api/projects/{id}/expanded", s.handleSetExpanded)
	mux.HandleFunc("GET /api/projects/{id}/worktrees", s.handleListWorktrees)
	mux.HandleFunc("POST /api/projects/{id}/worktrees", s.handleCreateWorktree)
	mux.HandleFunc("DELETE /api/worktrees/{id}", s.handleDeleteWorktree)
	mux.HandleFunc("GET /api/worktrees/{id}/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/worktrees/{id}/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/worktrees/{id}/terminal", s.HandleTerminal)

	return s
}

// Listen binds the server to its configured address and returns the listener.
// Call Serve() after Listen() to start accepting connections. The two-step
// approach lets callers obtain the actual bound address (useful for ephemeral
// port 0 in tests) before the server blocks on Serve().
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("web server listen: %w", err)
	}
	s.listener = ln
	return ln, nil
}

// Serve accepts connections on the listener. Blocks until the server stops.
// Must call Listen() first.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web server started", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Start is a convenience that calls Listen() then Serve().
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Addr returns the address the server is listening on.
// Only valid after Listen() or Start() has been called.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// NotifyChanged signals SSE subscribers that server-side state changed
// outside an API mutation (e.g. the startup cache warm-up finished).
func (s *Server) NotifyChanged() {
	s.events.Notify()
}

// Shutdown gracefully stops the server and any running transcript tailers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("web server shutting down")
	s.stopAllTailers()
	return s.httpServer.Shutdown(ctx)
}

// startTailer streams a session's transcript into the log channel so it
// shows up in the TUI log panel. No-op when the server has no sink.
func (s *Server) startTailer(sessionID string) {
	if s.sink == nil {
		return
	}

	tailer, err := session.NewTailer(s.sessions.TranscriptPath(sessionID), sessionID, s.sink)
	if err != nil {
		s.logger.Warn("transcript tailer failed to start", "session", sessionID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.tailMu.Lock()
	s.tailers[sessionID] = func() {
		cancel()
		_ = tailer.Close()
	}
	s.tailMu.Unlock()

	go func() { _ = tailer.Start(ctx) }()
}

func (s *Server) stopTailer(sessionID string) {
	s.tailMu.Lock()
	stop, ok := s.tailers[sessionID]
	delete(s.tailers, sessionID)
	s.tailMu.Unlock()
	if ok {
		stop()
	}
}

func (s *Server) stopAllTailers() {
	s.tailMu.Lock()
	stops := make([]func(), 0, len(s.tailers))
	for id, stop := range s.tailers {
		stops = append(stops, stop)
		delete(s.tailers, id)
	}
	s.tailMu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// SetWorktreeOpsForTest replaces the worktreeOps implementation. Test-only.
func (s *Server) SetWorktreeOpsForTest(ops worktreeOps) {
	s.worktreeOps = ops
}
