//go:build !windows

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/supervisr/internal/supervisor"
)

func newTestHandler(t *testing.T, command string) http.Handler {
	t.Helper()
	spec := supervisor.Spec{
		Name:         "svc",
		Command:      command,
		PIDFile:      filepath.Join(t.TempDir(), "svc.pid"),
		StopTimeout:  500 * time.Millisecond,
		KillTimeout:  300 * time.Millisecond,
		StartupGrace: 200 * time.Millisecond,
		RestartPause: 50 * time.Millisecond,
	}
	sup, err := supervisor.New(spec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := NewRouter(sup, "/api").Handler()
	t.Cleanup(func() {
		req := httptest.NewRequest(http.MethodPost, "/api/stop", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	})
	return h
}

func doJSON(t *testing.T, h http.Handler, method, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: bad JSON %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, body
}

func TestStatusWhenStopped(t *testing.T) {
	h := newTestHandler(t, "sleep 30")
	code, body := doJSON(t, h, http.MethodGet, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	if body["outcome"] != "not-running" || body["name"] != "svc" {
		t.Fatalf("body: %v", body)
	}
}

func TestHealthzReflectsLiveness(t *testing.T) {
	h := newTestHandler(t, "sleep 30")

	code, _ := doJSON(t, h, http.MethodGet, "/api/healthz")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("healthz while stopped: %d", code)
	}

	if code, body := doJSON(t, h, http.MethodPost, "/api/start"); code != http.StatusOK || body["outcome"] != "started" {
		t.Fatalf("start: %d %v", code, body)
	}
	if code, _ := doJSON(t, h, http.MethodGet, "/api/healthz"); code != http.StatusOK {
		t.Fatalf("healthz while running: %d", code)
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	h := newTestHandler(t, "sleep 30")

	code, body := doJSON(t, h, http.MethodPost, "/api/start")
	if code != http.StatusOK || body["outcome"] != "started" {
		t.Fatalf("start: %d %v", code, body)
	}
	firstPID := body["pid"]

	code, body = doJSON(t, h, http.MethodPost, "/api/start")
	if code != http.StatusOK || body["outcome"] != "already-running" {
		t.Fatalf("second start: %d %v", code, body)
	}

	code, body = doJSON(t, h, http.MethodPost, "/api/restart")
	if code != http.StatusOK || body["outcome"] != "started" {
		t.Fatalf("restart: %d %v", code, body)
	}
	if body["pid"] == firstPID {
		t.Fatalf("restart kept pid %v", body["pid"])
	}

	code, body = doJSON(t, h, http.MethodPost, "/api/stop")
	if code != http.StatusOK || body["outcome"] != "stopped" {
		t.Fatalf("stop: %d %v", code, body)
	}

	code, body = doJSON(t, h, http.MethodPost, "/api/stop")
	if code != http.StatusOK || body["outcome"] != "not-running" {
		t.Fatalf("idempotent stop: %d %v", code, body)
	}
}

func TestStartMissingExecutableMapsTo422(t *testing.T) {
	h := newTestHandler(t, "/nonexistent/daemon-that-is-not-there")
	code, body := doJSON(t, h, http.MethodPost, "/api/start")
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("start missing executable: %d %v", code, body)
	}
	if body["outcome"] != "failed" || body["error"] == "" {
		t.Fatalf("body: %v", body)
	}
}

func TestReloadWhenStopped(t *testing.T) {
	h := newTestHandler(t, "sleep 30")
	code, body := doJSON(t, h, http.MethodPost, "/api/reload")
	if code != http.StatusOK || body["outcome"] != "not-running" {
		t.Fatalf("reload: %d %v", code, body)
	}
}

func TestMetricsMountedAtRoot(t *testing.T) {
	h := newTestHandler(t, "sleep 30")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
}

func TestSanitizeBase(t *testing.T) {
	for in, want := range map[string]string{
		"":      "",
		"/api":  "/api",
		"api":   "/api",
		"/api/": "/api",
		"  ":    "",
	} {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}
