// pattern: Imperative Shell

package gitstatus

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"workbench/internal/logging"
)

// GitRunner executes a git command in a directory and returns its stdout.
type GitRunner func(ctx context.Context, dir string, args ...string) (string, error)

// execGit is the default runner backed by os/exec.
func execGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(output), nil
}

// Fetcher warms the status cache one project at a time.
type Fetcher struct {
	cache  *Cache
	logger *logging.ScopedLogger
	run    GitRunner
}

// NewFetcher creates a fetcher writing into cache.
func NewFetcher(cache *Cache, logger *logging.ScopedLogger) *Fetcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Fetcher{cache: cache, logger: logger, run: execGit}
}

// NewFetcherWithRunner creates a Fetcher with the given runner (for testing).
func NewFetcherWithRunner(cache *Cache, logger *logging.ScopedLogger, run GitRunner) *Fetcher {
	f := NewFetcher(cache, logger)
	f.run = run
	return f
}

// Fetch runs git status for the project at path and stores the parsed result
// under projectID. The cache entry is only written on success; a failed fetch
// leaves any previous entry intact.
func (f *Fetcher) Fetch(ctx context.Context, projectID, path string) error {
	output, err := f.run(ctx, path, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return fmt.Errorf("status fetch for %s: %w", projectID, err)
	}

	st := ParseStatus(output)
	f.cache.Set(projectID, st)
	f.logger.Debug("status warmed", "project", projectID, "branch", st.Branch, "clean", st.Clean())
	return nil
}
