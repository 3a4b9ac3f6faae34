//go:build !windows

package supervisr

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/supervisr/internal/config"
	"github.com/loykin/supervisr/internal/logger"
	"github.com/loykin/supervisr/internal/metrics"
	iapi "github.com/loykin/supervisr/internal/server"
	"github.com/loykin/supervisr/internal/store"
	storefactory "github.com/loykin/supervisr/internal/store/factory"
	"github.com/loykin/supervisr/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = supervisor.Spec

type Result = supervisor.Result

type Outcome = supervisor.Outcome

const (
	OutcomeStarted          = supervisor.OutcomeStarted
	OutcomeAlreadyRunning   = supervisor.OutcomeAlreadyRunning
	OutcomeStopped          = supervisor.OutcomeStopped
	OutcomeNotRunning       = supervisor.OutcomeNotRunning
	OutcomeReloaded         = supervisor.OutcomeReloaded
	OutcomeStaleLockCleared = supervisor.OutcomeStaleLockCleared
	OutcomeFailed           = supervisor.OutcomeFailed
)

// Sentinel errors, re-exported for errors.Is matching by embedders.
var (
	ErrInvalidSpec        = supervisor.ErrInvalidSpec
	ErrMissingExecutable  = supervisor.ErrMissingExecutable
	ErrPermissionDenied   = supervisor.ErrPermissionDenied
	ErrLaunchFailure      = supervisor.ErrLaunchFailure
	ErrTerminationTimeout = supervisor.ErrTerminationTimeout
)

// Supervisor is a thin facade over internal/supervisor.Supervisor providing
// a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// New validates spec and constructs a Supervisor for it.
func New(spec Spec) (*Supervisor, error) {
	s, err := supervisor.New(spec)
	if err != nil {
		return nil, err
	}
	return &Supervisor{inner: s}, nil
}

func (s *Supervisor) Name() string                       { return s.inner.Spec().Name }
func (s *Supervisor) Start(ctx context.Context) Result   { return s.inner.Start(ctx) }
func (s *Supervisor) Stop(ctx context.Context) Result    { return s.inner.Stop(ctx) }
func (s *Supervisor) Restart(ctx context.Context) Result { return s.inner.Restart(ctx) }
func (s *Supervisor) Status() Result                     { return s.inner.Status() }
func (s *Supervisor) Reload() Result                     { return s.inner.Reload() }
func (s *Supervisor) SetLogger(lg *slog.Logger)          { s.inner.SetLogger(lg) }
func (s *Supervisor) SetStore(st store.Store) error      { return s.inner.SetStore(st) }

// LoadConfig reads a TOML config file into a validated FileConfig.
func LoadConfig(path string) (*cfg.FileConfig, error) { return cfg.Load(path) }

// NewLogger builds an slog.Logger from a config's [log] section.
func NewLogger(c logger.Config) *slog.Logger { return c.NewLogger() }

// NewStore opens a lifecycle event store from a DSN (sqlite path or
// postgres URL).
func NewStore(dsn string) (store.Store, error) { return storefactory.NewFromDSN(dsn) }

// NewHTTPServer builds an HTTP server exposing status, lifecycle and
// metrics endpoints for the given supervisor.
func NewHTTPServer(addr, basePath string, s *Supervisor) *http.Server {
	return iapi.NewServer(addr, basePath, s.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
