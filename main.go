// pattern: Imperative Shell
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"workbench/internal/config"
	"workbench/internal/gitstatus"
	"workbench/internal/instance"
	"workbench/internal/logging"
	"workbench/internal/prefetch"
	"workbench/internal/project"
	"workbench/internal/session"
	"workbench/internal/tui"
	"workbench/internal/web"
)

var version = "dev"

func main() {
	configDir := flag.StringP("config-dir", "c", "", "config directory (default: ~/.config/workbench)")
	dataDir := flag.StringP("data-dir", "d", "", "data directory (default: ~/.local/share/workbench)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("workbench", version)
		return
	}

	run(*configDir, *dataDir)
}

func loadConfig(configDir string) (config.Config, error) {
	if configDir != "" {
		return config.LoadFromDir(configDir)
	}
	return config.Load()
}

func run(configDir, dataDirOverride string) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dataDir := config.ResolveDataDir(dataDirOverride)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Acquire single-instance lock
	fl, err := instance.Lock(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer instance.Cleanup(dataDir, fl)

	logManager, err := logging.NewManager(logging.Config{
		FilePath:       filepath.Join(dataDir, "workbench.log"),
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		ChannelBufSize: 1000,
		Level:          cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logManager.Close() }()

	appLogger := logManager.For("app")
	appLogger.Info("application starting", "version", version, "data_dir", dataDir)

	store := project.NewStore(dataDir, logManager.For("project"))
	sessions := session.NewStore(dataDir, logManager.For("session"))

	statusCache := gitstatus.NewCache()
	sessionCache := session.NewCache()
	fetcher := gitstatus.NewFetcher(statusCache, logManager.For("gitstatus"))
	prefetcher := session.NewPrefetcher(sessions, sessionCache, logManager.For("session"))

	orch := prefetch.New(
		fetcher,
		store,
		prefetcher,
		cfg.Prefetch.Concurrency,
		logManager.For("prefetch"),
	)

	model := tui.NewModel(tui.Deps{
		Config:     &cfg,
		Store:      store,
		Statuses:   statusCache,
		Sessions:   sessionCache,
		Prefetch:   orch,
		Logger:     logManager.For("tui"),
		LogEntries: logManager.Entries(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Web server always starts (ephemeral port if not configured)
	webServer := web.New(
		web.Config{Bind: cfg.Web.Bind, Port: cfg.Web.Port},
		web.Deps{
			Store:        store,
			Sessions:     sessions,
			Statuses:     statusCache,
			SessionCache: sessionCache,
			Fetcher:      fetcher,
			WorktreesDir: cfg.ResolveWorktreesDir(),
			NotifyTUI:    func(msg any) { p.Send(msg) },
			Sink:         logManager.Sink(),
		},
		logManager,
	)
	ln, err := webServer.Listen()
	if err != nil {
		appLogger.Error("web server listen error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Write port file for external tooling
	if err := instance.WritePort(dataDir, webServer.Addr()); err != nil {
		appLogger.Error("failed to write port file", "error", err)
	}

	go func() {
		if err := webServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			appLogger.Error("web server error", "error", err)
		}
	}()

	// Let web clients re-fetch once the startup warm-up lands.
	go func() {
		<-orch.Done()
		webServer.NotifyChanged()
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webServer.Shutdown(ctx); err != nil {
			appLogger.Error("web server shutdown error", "error", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		appLogger.Error("application exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}

	appLogger.Info("application stopped")
}
