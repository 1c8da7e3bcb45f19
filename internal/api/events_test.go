package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mfahlbusch/camswitch/internal/camera"
)

// readDataLine reads lines until the next "data:" SSE field.
func readDataLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read SSE line: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	t.Fatal("no data line received")
	return ""
}

func TestStreamEventsSnapshotAndUpdates(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/streams/cam1/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)

	// First message is the current status snapshot.
	var status camera.Status
	if err := json.Unmarshal([]byte(readDataLine(t, r)), &status); err != nil {
		t.Fatalf("bad snapshot: %v", err)
	}
	if status.ID != "cam1" || status.Mode != camera.ModeStandby {
		t.Errorf("snapshot = %+v", status)
	}

	// A transition produces exactly one further message.
	cam, _ := s.registry.Get("cam1")
	cam.SetLive()

	if err := json.Unmarshal([]byte(readDataLine(t, r)), &status); err != nil {
		t.Fatalf("bad update: %v", err)
	}
	if status.Mode != camera.ModeLive {
		t.Errorf("update mode = %q, want live", status.Mode)
	}
}

func TestStreamEventsUnknownCamera(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/streams/cam9/events")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStreamEventsReleasesSubscriber(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/streams/cam1/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}

	cam, _ := s.registry.Get("cam1")
	deadline := time.Now().Add(2 * time.Second)
	for cam.SubscriberCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cam.SubscriberCount() != 1 {
		t.Fatal("subscriber was not registered")
	}

	resp.Body.Close()

	deadline = time.Now().Add(2 * time.Second)
	for cam.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cam.SubscriberCount() != 0 {
		t.Error("subscriber not released after disconnect")
	}
}
