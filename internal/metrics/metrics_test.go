package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestCountersIncrementAfterRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	IncStart("svc")
	IncStart("svc")
	IncStop("svc")
	IncRestart("svc")
	IncStaleCleared("svc")
	IncKillEscalation("svc")
	IncFailure("svc", "launch_failure")
	SetUp("svc", true)

	if got := testutil.ToFloat64(serviceStarts.WithLabelValues("svc")); got < 2 {
		t.Fatalf("starts_total = %v, want >= 2", got)
	}
	if got := testutil.ToFloat64(serviceUp.WithLabelValues("svc")); got != 1 {
		t.Fatalf("up = %v, want 1", got)
	}

	SetUp("svc", false)
	if got := testutil.ToFloat64(serviceUp.WithLabelValues("svc")); got != 0 {
		t.Fatalf("up = %v, want 0", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	if Handler() == nil {
		t.Fatalf("nil metrics handler")
	}
}
