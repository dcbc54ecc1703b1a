package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anurag-haridas/visual-impaired/internal/face"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
	"github.com/anurag-haridas/visual-impaired/internal/metrics"
	"github.com/anurag-haridas/visual-impaired/internal/pipeline"
)

type fixedStatus struct{ s pipeline.Status }

func (f fixedStatus) Status() pipeline.Status { return f.s }

// AddListener returns a closed channel so /events ends after the status.
func (f fixedStatus) AddListener() chan pipeline.Event {
	ch := make(chan pipeline.Event)
	close(ch)
	return ch
}

func (f fixedStatus) RemoveListener(chan pipeline.Event) {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	g, err := gallery.New([]gallery.Entry{{Embedding: face.Embedding{1, 2}, Label: "alice"}})
	if err != nil {
		t.Fatalf("gallery.New() error: %v", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveFrame("active")

	srv := NewServer(":0", fixedStatus{pipeline.Status{RunID: "abc", Frames: 3}}, g, reg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, body
}

func TestServer_Routes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/api/v1/health", http.StatusOK, `"status":"ok"`},
		{"/api/v1/status", http.StatusOK, `"run_id":"abc"`},
		{"/api/v1/gallery", http.StatusOK, `"label":"alice"`},
		{"/api/v1/events", http.StatusOK, "event: status"},
		{"/metrics", http.StatusOK, "visual_impaired_frames_total"},
		{"/api/v1/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.contains != "" && !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestServer_StatusJSON(t *testing.T) {
	ts := newTestServer(t)

	_, body := get(t, ts.URL+"/api/v1/status")
	var s pipeline.Status
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("failed to unmarshal status: %v", err)
	}
	if s.Frames != 3 {
		t.Errorf("Frames = %d, want 3", s.Frames)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/api/v1/health")
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
