package gitstatus

import (
	"context"
	"errors"
	"testing"

	"workbench/internal/logging"
)

func TestFetch_WarmsCache(t *testing.T) {
	cache := NewCache()
	run := func(_ context.Context, dir string, args ...string) (string, error) {
		if dir != "/repo/alpha" {
			t.Errorf("expected fetch in project dir, got %s", dir)
		}
		return "# branch.head main\n? new.go\n", nil
	}
	f := NewFetcherWithRunner(cache, logging.NopLogger(), run)

	if err := f.Fetch(context.Background(), "p1", "/repo/alpha"); err != nil {
		t.Fatal(err)
	}

	entry, ok := cache.Get("p1")
	if !ok {
		t.Fatal("expected cache entry for p1")
	}
	if entry.Status.Branch != "main" {
		t.Errorf("expected main, got %s", entry.Status.Branch)
	}
	if entry.Status.Untracked != 1 {
		t.Errorf("expected 1 untracked, got %d", entry.Status.Untracked)
	}
	if entry.FetchedAt.IsZero() {
		t.Error("expected FetchedAt set")
	}
}

func TestFetch_FailureLeavesCacheCold(t *testing.T) {
	cache := NewCache()
	run := func(_ context.Context, _ string, _ ...string) (string, error) {
		return "", errors.New("not a git repository")
	}
	f := NewFetcherWithRunner(cache, logging.NopLogger(), run)

	if err := f.Fetch(context.Background(), "p1", "/repo/alpha"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := cache.Get("p1"); ok {
		t.Error("failed fetch must not write a cache entry")
	}
}

func TestFetch_FailurePreservesPreviousEntry(t *testing.T) {
	cache := NewCache()
	cache.Set("p1", Status{Branch: "main"})

	run := func(_ context.Context, _ string, _ ...string) (string, error) {
		return "", errors.New("io error")
	}
	f := NewFetcherWithRunner(cache, logging.NopLogger(), run)

	_ = f.Fetch(context.Background(), "p1", "/repo/alpha")

	entry, ok := cache.Get("p1")
	if !ok || entry.Status.Branch != "main" {
		t.Error("expected stale entry preserved after failed refresh")
	}
}

func TestCache_InvalidateAndSnapshot(t *testing.T) {
	cache := NewCache()
	cache.Set("p1", Status{Branch: "main"})
	cache.Set("p2", Status{Branch: "dev"})

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}

	snap := cache.Snapshot()
	cache.Invalidate("p1")

	if cache.Len() != 1 {
		t.Errorf("expected 1 entry after invalidate, got %d", cache.Len())
	}
	if _, ok := snap["p1"]; !ok {
		t.Error("snapshot must be unaffected by later invalidation")
	}
}
