package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serviceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervisr",
			Subsystem: "service",
			Name:      "starts_total",
			Help:      "Number of successful service starts.",
		}, []string{"name"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervisr",
			Subsystem: "service",
			Name:      "stops_total",
			Help:      "Number of confirmed service stops.",
		}, []string{"name"},
	)
	serviceRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervisr",
			Subsystem: "service",
			Name:      "restarts_total",
			Help:      "Number of restart operations.",
		}, []string{"name"},
	)
	staleLocksCleared = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervisr",
			Subsystem: "service",
			Name:      "stale_locks_cleared_total",
			Help:      "Number of stale PID records removed before start/stop.",
		}, []string{"name"},
	)
	killEscalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervisr",
			Subsystem: "service",
			Name:      "kill_escalations_total",
			Help:      "Number of SIGKILL escalations after a graceful stop timed out.",
		}, []string{"name"},
	)
	operationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supervisr",
			Subsystem: "service",
			Name:      "failures_total",
			Help:      "Number of failed operations by reason.",
		}, []string{"name", "reason"},
	)
	serviceUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "supervisr",
			Subsystem: "service",
			Name:      "up",
			Help:      "Whether the supervised service is currently running (1) or not (0).",
		}, []string{"name"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serviceStarts, serviceStops, serviceRestarts, staleLocksCleared, killEscalations, operationFailures, serviceUp}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// Already registered is fine; allows double Register with default registry
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the
// DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Lightweight helpers used by internal packages. They no-op until Register
// has been called.

func IncStart(name string) {
	if regOK.Load() {
		serviceStarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		serviceStops.WithLabelValues(name).Inc()
	}
}

func IncRestart(name string) {
	if regOK.Load() {
		serviceRestarts.WithLabelValues(name).Inc()
	}
}

func IncStaleCleared(name string) {
	if regOK.Load() {
		staleLocksCleared.WithLabelValues(name).Inc()
	}
}

func IncKillEscalation(name string) {
	if regOK.Load() {
		killEscalations.WithLabelValues(name).Inc()
	}
}

func IncFailure(name, reason string) {
	if regOK.Load() {
		operationFailures.WithLabelValues(name, reason).Inc()
	}
}

func SetUp(name string, up bool) {
	if !regOK.Load() {
		return
	}
	v := 0.0
	if up {
		v = 1.0
	}
	serviceUp.WithLabelValues(name).Set(v)
}
