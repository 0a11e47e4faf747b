package project

import (
	"path/filepath"
	"testing"
)

func TestValidateWorktreeName(t *testing.T) {
	valid := []string{"feature-x", "fix/bug-123", "a", "v1.2.3", "snake_case"}
	for _, name := range valid {
		if err := ValidateWorktreeName(name); err != nil {
			t.Errorf("expected %q valid, got %v", name, err)
		}
	}

	invalid := []string{"", "-leading-dash", "has space", "dot..dot", "/leading"}
	for _, name := range invalid {
		if err := ValidateWorktreeName(name); err == nil {
			t.Errorf("expected %q invalid", name)
		}
	}

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateWorktreeName(string(long)); err == nil {
		t.Error("expected overlong name invalid")
	}
}

func TestSanitizeDirName(t *testing.T) {
	cases := map[string]string{
		"my-project":   "my-project",
		"my project":   "my-project",
		"my/project":   "my-project",
		"my_project":   "my_project",
		"MyProject123": "MyProject123",
	}
	for in, want := range cases {
		if got := SanitizeDirName(in); got != want {
			t.Errorf("SanitizeDirName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWorktreeDir(t *testing.T) {
	got := WorktreeDir("/base", "My Project", "feature-x")
	want := filepath.Join("/base", "My-Project", "feature-x")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestParseWorktreeList(t *testing.T) {
	output := `worktree /home/user/project
HEAD abc123def456
branch refs/heads/main

worktree /home/user/workbench/project/feature-x
HEAD def456abc123
branch refs/heads/feature/new-model

worktree /home/user/workbench/project/fix-bug
HEAD 789abc123def
branch refs/heads/fix/bug-123

`
	worktrees := parseWorktreeList(output)

	if len(worktrees) != 2 {
		t.Fatalf("expected 2 worktrees (skipping main), got %d", len(worktrees))
	}

	if worktrees[0].Path != "/home/user/workbench/project/feature-x" {
		t.Errorf("expected feature-x path, got %s", worktrees[0].Path)
	}
	if worktrees[0].Branch != "feature/new-model" {
		t.Errorf("expected feature/new-model branch, got %s", worktrees[0].Branch)
	}
	if worktrees[0].Name != "feature-x" {
		t.Errorf("expected feature-x name, got %s", worktrees[0].Name)
	}

	if worktrees[1].Branch != "fix/bug-123" {
		t.Errorf("expected fix/bug-123 branch, got %s", worktrees[1].Branch)
	}
}

func TestParseWorktreeList_MainOnly(t *testing.T) {
	output := `worktree /home/user/project
HEAD abc123def456
branch refs/heads/main

`
	if got := parseWorktreeList(output); len(got) != 0 {
		t.Fatalf("expected 0 worktrees for main-only, got %d", len(got))
	}
}

func TestParseWorktreeList_Empty(t *testing.T) {
	if got := parseWorktreeList(""); len(got) != 0 {
		t.Fatalf("expected 0 worktrees for empty input, got %d", len(got))
	}
}

func TestParseWorktreeList_NoTrailingNewline(t *testing.T) {
	output := "worktree /p\nHEAD abc\nbranch refs/heads/main\n\nworktree /p/wt\nHEAD def\nbranch refs/heads/wt"
	got := parseWorktreeList(output)
	if len(got) != 1 {
		t.Fatalf("expected 1 worktree, got %d", len(got))
	}
	if got[0].Branch != "wt" {
		t.Errorf("expected branch wt, got %s", got[0].Branch)
	}
}

func TestListGitWorktrees_NotARepo(t *testing.T) {
	if got := ListGitWorktrees(t.TempDir()); got != nil {
		t.Errorf("expected nil for non-repo, got %v", got)
	}
}
