// pattern: Imperative Shell

package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"workbench/internal/logging"
)

// TranscriptLine is one JSONL line of a session transcript, as written by
// the detached agent CLI process.
type TranscriptLine struct {
	Ts   float64 `json:"ts"`
	Role string  `json:"role"`
	Text string  `json:"text"`
}

// ToLogEntry converts a transcript line to a LogEntry for TUI consumption.
// The sessionID becomes the scope suffix (e.g., "session.abc123").
func (l TranscriptLine) ToLogEntry(sessionID string) logging.LogEntry {
	sec := int64(l.Ts)
	nsec := int64((l.Ts - float64(sec)) * 1e9)

	return logging.LogEntry{
		Timestamp: time.Unix(sec, nsec),
		Level:     "INFO",
		Scope:     "session." + sessionID,
		Message:   fmt.Sprintf("[%s] %s", l.Role, l.Text),
		Fields: map[string]any{
			"role": l.Role,
		},
	}
}

// Tailer tails a session's JSONL transcript and forwards entries to the
// logging channel sink. It watches the file with fsnotify plus a polling
// safeguard for filesystems with unreliable events.
type Tailer struct {
	filePath  string
	sessionID string
	sink      *logging.ChannelSink
	watcher   *fsnotify.Watcher

	mu     sync.Mutex
	file   *os.File
	offset int64
	closed bool
}

// NewTailer creates a tailer for the given transcript file.
// Entries are sent to the provided ChannelSink.
func NewTailer(filePath, sessionID string, sink *logging.ChannelSink) (*Tailer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Tailer{
		filePath:  filePath,
		sessionID: sessionID,
		sink:      sink,
		watcher:   watcher,
	}, nil
}

// Start begins watching the transcript for new lines.
// It returns when the context is cancelled.
func (t *Tailer) Start(ctx context.Context) error {
	// Watch parent directory (file may not exist yet)
	dir := filepath.Dir(t.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	if err := t.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	// Read any content already present
	t.mu.Lock()
	_ = t.openFile(false)
	t.readNewLines()
	t.mu.Unlock()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = t.Close()
			return ctx.Err()

		case event, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != filepath.Clean(t.filePath) {
				continue
			}

			if event.Has(fsnotify.Create) {
				t.mu.Lock()
				_ = t.openFile(false)
				t.readNewLines()
				t.mu.Unlock()
			}

			if event.Has(fsnotify.Write) {
				t.mu.Lock()
				t.readNewLines()
				t.mu.Unlock()
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				t.mu.Lock()
				t.closeFile()
				t.mu.Unlock()
			}

		case <-ticker.C:
			// Polling safeguard: pick up content even if events were missed
			t.mu.Lock()
			if t.file == nil {
				_ = t.openFile(false)
			}
			t.readNewLines()
			t.mu.Unlock()

		case _, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			// Transient watcher errors are not fatal for tailing
		}
	}
}

// openFile opens the transcript. If seekToEnd is true, seeks to the end so
// only new content is reported.
func (t *Tailer) openFile(seekToEnd bool) error {
	if t.file != nil {
		return nil
	}

	file, err := os.Open(t.filePath)
	if err != nil {
		return err
	}

	var offset int64
	if seekToEnd {
		offset, err = file.Seek(0, io.SeekEnd)
		if err != nil {
			_ = file.Close()
			return err
		}
	}

	t.file = file
	t.offset = offset
	return nil
}

func (t *Tailer) closeFile() {
	if t.file != nil {
		_ = t.file.Close()
		t.file = nil
		t.offset = 0
	}
}

// readNewLines reads any complete lines appended since the last read.
func (t *Tailer) readNewLines() {
	if t.file == nil {
		return
	}

	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return
	}

	scanner := bufio.NewScanner(t.file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var parsed TranscriptLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			// Skip malformed lines
			continue
		}

		t.sink.Send(parsed.ToLogEntry(t.sessionID))
	}

	if pos, err := t.file.Seek(0, io.SeekCurrent); err == nil {
		t.offset = pos
	}
}

// Close stops the tailer and releases resources.
func (t *Tailer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	t.closeFile()
	return t.watcher.Close()
}
