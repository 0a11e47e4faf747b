package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"workbench/internal/logging"
)

func TestTranscriptLine_ToLogEntry(t *testing.T) {
	line := TranscriptLine{Ts: 1700000000.5, Role: "assistant", Text: "done"}
	entry := line.ToLogEntry("abc123")

	if entry.Scope != "session.abc123" {
		t.Errorf("expected session scope, got %s", entry.Scope)
	}
	if entry.Message != "[assistant] done" {
		t.Errorf("unexpected message: %s", entry.Message)
	}
	if entry.Timestamp.Unix() != 1700000000 {
		t.Errorf("unexpected timestamp: %v", entry.Timestamp)
	}
	if entry.Fields["role"] != "assistant" {
		t.Errorf("expected role field, got %v", entry.Fields)
	}
}

func TestTailer_ReadsExistingAndAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.jsonl")

	existing := `{"ts": 1700000000, "role": "user", "text": "hello"}` + "\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	sink := logging.NewChannelSink(16)
	tailer, err := NewTailer(path, "s1", sink)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tailer.Start(ctx)
	}()

	// Existing content is delivered.
	select {
	case entry := <-sink.Entries():
		if entry.Message != "[user] hello" {
			t.Errorf("unexpected first entry: %s", entry.Message)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for existing line")
	}

	// Appended content is delivered.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"ts": 1700000001, "role": "assistant", "text": "hi"}` + "\n"); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	select {
	case entry := <-sink.Entries():
		if entry.Message != "[assistant] hi" {
			t.Errorf("unexpected appended entry: %s", entry.Message)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for appended line")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("tailer did not stop on cancel")
	}
}

func TestTailer_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.jsonl")

	content := "not json\n" + `{"ts": 1, "role": "user", "text": "valid"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sink := logging.NewChannelSink(16)
	tailer, err := NewTailer(path, "s1", sink)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tailer.Start(ctx) }()

	select {
	case entry := <-sink.Entries():
		if entry.Message != "[user] valid" {
			t.Errorf("expected malformed line skipped, got %s", entry.Message)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for valid line")
	}
}

func TestTailer_CloseIsIdempotent(t *testing.T) {
	sink := logging.NewChannelSink(1)
	tailer, err := NewTailer(filepath.Join(t.TempDir(), "t.jsonl"), "s1", sink)
	if err != nil {
		t.Fatal(err)
	}
	if err := tailer.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tailer.Close(); err != nil {
		t.Fatal(err)
	}
}
