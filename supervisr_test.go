//go:build !windows

package supervisr

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFacadeLifecycle(t *testing.T) {
	dir := t.TempDir()
	sup, err := New(Spec{
		Name:         "svc",
		Command:      "sleep 30",
		PIDFile:      filepath.Join(dir, "svc.pid"),
		StopTimeout:  500 * time.Millisecond,
		KillTimeout:  300 * time.Millisecond,
		StartupGrace: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sup.Name() != "svc" {
		t.Fatalf("Name: %q", sup.Name())
	}

	st, err := NewStore(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = st.Close() }()
	if err := sup.SetStore(st); err != nil {
		t.Fatalf("SetStore: %v", err)
	}

	ctx := context.Background()
	res := sup.Start(ctx)
	if res.Outcome != OutcomeStarted {
		t.Fatalf("Start: %v err=%v", res.Outcome, res.Err)
	}
	if got := sup.Status(); got.Outcome != OutcomeAlreadyRunning || got.PID != res.PID {
		t.Fatalf("Status: %+v", got)
	}
	if got := sup.Stop(ctx); got.Outcome != OutcomeStopped {
		t.Fatalf("Stop: %v err=%v", got.Outcome, got.Err)
	}

	last, err := st.LastEvent(ctx, "svc")
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if last.Event != "stopped" {
		t.Fatalf("last event: %+v", last)
	}
}

func TestFacadeRejectsInvalidSpec(t *testing.T) {
	_, err := New(Spec{Name: "svc"})
	if !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("want ErrInvalidSpec, got %v", err)
	}
}

func TestRegisterMetricsDefault(t *testing.T) {
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("RegisterMetricsDefault: %v", err)
	}
	// second registration is a no-op
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("second RegisterMetricsDefault: %v", err)
	}
}

func TestNewHTTPServer(t *testing.T) {
	sup, err := New(Spec{Name: "svc", Command: "sleep 1", PIDFile: filepath.Join(t.TempDir(), "svc.pid")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := NewHTTPServer("127.0.0.1:0", "/api", sup)
	if srv == nil || srv.Handler == nil {
		t.Fatalf("nil server or handler")
	}
}
