// pattern: Imperative Shell

package project

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// validNameRe matches valid worktree names: alphanumeric, hyphens, underscores, slashes.
var validNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// ValidateWorktreeName checks if a worktree name is valid.
// Names must start with an alphanumeric character and contain only
// alphanumeric, hyphens, underscores, dots, and slashes.
func ValidateWorktreeName(name string) error {
	if name == "" {
		return fmt.Errorf("worktree name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("worktree name too long (max 100 characters)")
	}
	if !validNameRe.MatchString(name) {
		return fmt.Errorf("invalid worktree name %q: must start with alphanumeric, may contain a-z A-Z 0-9 . _ / -", name)
	}
	// Disallow ".." path traversal
	if strings.Contains(name, "..") {
		return fmt.Errorf("worktree name cannot contain '..'")
	}
	return nil
}

// SanitizeDirName maps a display name to a safe directory name.
func SanitizeDirName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

// WorktreeDir returns the path where a worktree would be created.
// Worktrees are stored in <baseDir>/<sanitized-project-name>/<name>/
func WorktreeDir(baseDir, projectName, name string) string {
	return filepath.Join(baseDir, SanitizeDirName(projectName), name)
}

// CreateWorktree creates a new git worktree with a feature branch under
// baseDir and returns its path.
func CreateWorktree(projectPath, baseDir, projectName, name string) (string, error) {
	if err := ValidateWorktreeName(name); err != nil {
		return "", err
	}

	wtDir := WorktreeDir(baseDir, projectName, name)

	if _, err := os.Stat(wtDir); err == nil {
		return "", fmt.Errorf("worktree %q already exists at %s", name, wtDir)
	}

	if err := os.MkdirAll(filepath.Dir(wtDir), 0755); err != nil {
		return "", fmt.Errorf("creating worktrees directory: %w", err)
	}

	cmd := exec.Command("git", "worktree", "add", wtDir, "-b", name)
	cmd.Dir = projectPath
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("git worktree add: %s: %w", strings.TrimSpace(string(output)), err)
	}

	return wtDir, nil
}

// DestroyWorktree removes a worktree and its branch.
// Both steps are non-force: git refuses if the tree is dirty or the branch
// is unmerged.
func DestroyWorktree(projectPath, wtDir, branch string) error {
	cmd := exec.Command("git", "worktree", "remove", wtDir)
	cmd.Dir = projectPath
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git worktree remove: %s: %w", strings.TrimSpace(string(output)), err)
	}

	cmd = exec.Command("git", "branch", "-d", branch)
	cmd.Dir = projectPath
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git branch -d: %s: %w", strings.TrimSpace(string(output)), err)
	}

	return nil
}

// GitWorktree is one entry from `git worktree list`.
type GitWorktree struct {
	Name   string // Worktree directory name
	Path   string // Absolute path to the worktree directory
	Branch string // Git branch name
}

// ListGitWorktrees runs `git worktree list --porcelain` in the project and
// parses the output. Returns nil if not a git repo or no additional
// worktrees exist.
func ListGitWorktrees(projectPath string) []GitWorktree {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil {
		return nil
	}

	return parseWorktreeList(string(output))
}

// parseWorktreeList parses the porcelain output of `git worktree list`.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc123
//	branch refs/heads/branch-name
//	<blank line>
//
// The first entry is the main worktree; we skip it and return only additional worktrees.
func parseWorktreeList(output string) []GitWorktree {
	var worktrees []GitWorktree
	var current *GitWorktree

	scanner := bufio.NewScanner(strings.NewReader(output))
	isFirst := true
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "worktree ") {
			// Save previous (non-first) worktree
			if current != nil && !isFirst {
				worktrees = append(worktrees, *current)
			}
			if current != nil {
				isFirst = false
			}
			path := strings.TrimPrefix(line, "worktree ")
			current = &GitWorktree{
				Path: path,
				Name: filepath.Base(path),
			}
		} else if strings.HasPrefix(line, "branch ") && current != nil {
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		} else if line == "" && current != nil {
			if !isFirst {
				worktrees = append(worktrees, *current)
				current = nil
			} else {
				isFirst = false
				current = nil
			}
		}
	}

	if current != nil && !isFirst {
		worktrees = append(worktrees, *current)
	}

	return worktrees
}
