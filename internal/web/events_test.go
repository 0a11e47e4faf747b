package web_test

import (
	"bufio"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestSSE_ConnectAndRefresh(t *testing.T) {
	s, store, _, _, _ := newTestServer(t)
	baseURL := startServer(t, s)

	resp, err := http.Get(baseURL + "/api/events")
	if err != nil {
		t.Fatalf("GET /api/events error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)

	readEvent := func() string {
		t.Helper()
		lines := make(chan string, 1)
		go func() {
			for {
				line, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if strings.HasPrefix(line, "event: ") {
					lines <- strings.TrimSpace(strings.TrimPrefix(line, "event: "))
					return
				}
			}
		}()
		select {
		case event := <-lines:
			return event
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for SSE event")
			return ""
		}
	}

	if event := readEvent(); event != "connected" {
		t.Errorf("first event = %q, want connected", event)
	}

	// A mutation through the API notifies subscribers.
	if _, err := store.AddProject("alpha", "/tmp/alpha"); err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	resp2 := postJSON(t, baseURL+"/api/projects", struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}{Name: "beta", Path: "/tmp/beta"})
	_ = resp2.Body.Close()

	if event := readEvent(); event != "refresh" {
		t.Errorf("second event = %q, want refresh", event)
	}
}
