//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/loykin/supervisr/internal/metrics"
	"github.com/loykin/supervisr/internal/pidfile"
	"github.com/loykin/supervisr/internal/probe"
	"github.com/loykin/supervisr/internal/store"
)

// How long a mutating operation waits for the record lock before giving up.
// Contention here means another invocation is mid-flight, so the wait is
// normally a few milliseconds.
const lockWait = 5 * time.Second

// Supervisor owns the lifecycle of exactly one named, long-running child
// process, tracked via a PID file. At most one live instance exists per
// PID-file location; Start, Stop, Restart and Status are idempotent and
// safe to invoke concurrently from independent invocations. The PID record
// is the sole shared mutable state; mutating operations serialize on an
// exclusive file lock next to it.
type Supervisor struct {
	spec Spec
	rec  pidfile.File
	lg   *slog.Logger
	st   store.Store
}

// New validates spec and constructs a Supervisor. A malformed spec is the
// one unrecoverable condition; everything after construction is reported
// through Results.
func New(spec Spec) (*Supervisor, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Supervisor{
		spec: spec.withDefaults(),
		rec:  pidfile.File{Path: spec.PIDFile},
		lg:   slog.Default(),
	}, nil
}

// Spec returns a copy of the effective (defaulted) spec.
func (s *Supervisor) Spec() Spec { return s.spec }

// SetLogger replaces the supervisor's logger.
func (s *Supervisor) SetLogger(lg *slog.Logger) {
	if lg != nil {
		s.lg = lg
	}
}

// SetStore configures an optional event store; lifecycle events are
// recorded best-effort and never fail an operation.
func (s *Supervisor) SetStore(st store.Store) error {
	s.st = st
	if st == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return st.EnsureSchema(ctx)
}

// Start launches the service unless a live instance already holds the PID
// record. A stale record is cleared and logged, never fatal. Exactly one of
// N racing Starts launches; the rest observe the winner and report
// AlreadyRunning.
func (s *Supervisor) Start(ctx context.Context) Result {
	if err := s.ensureRecordDir(); err != nil {
		return s.fail(err)
	}
	lock, err := pidfile.NewLock(s.rec.Path)
	if err != nil {
		return s.fail(s.wrapFS(err))
	}
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	if err := lock.Acquire(lockCtx); err != nil {
		// A concurrent invocation holds the record. Re-probe instead of
		// assuming failure: if it won the race the service is up.
		if pid, ok := s.livePID(); ok {
			return Result{Outcome: OutcomeAlreadyRunning, PID: pid}
		}
		return s.fail(err)
	}
	defer func() { _ = lock.Release() }()

	staleCleared := false
	if pid, m, err := s.rec.Read(); err == nil {
		if probe.SameProcess(pid, m.StartUnix) {
			return Result{Outcome: OutcomeAlreadyRunning, PID: pid}
		}
		s.lg.Info("clearing stale pid record", "name", s.spec.Name, "pid", pid, "path", s.rec.Path)
		if err := s.rec.Remove(); err != nil {
			return s.fail(s.wrapFS(err))
		}
		staleCleared = true
		metrics.IncStaleCleared(s.spec.Name)
		s.recordEvent(store.EventStaleCleared, pid, "")
	}

	cmd := s.spec.BuildCommand()
	if err := checkExecutable(cmd); err != nil {
		return s.failTransition(err, staleCleared)
	}

	cred, err := lookupCredential(s.spec.User, s.spec.Group)
	if err != nil {
		return s.failTransition(fmt.Errorf("%w: %v", ErrPermissionDenied, err), staleCleared)
	}
	configureSysProcAttr(cmd, cred)
	if s.spec.WorkDir != "" {
		cmd.Dir = s.spec.WorkDir
	}
	if len(s.spec.Env) > 0 {
		cmd.Env = append(os.Environ(), s.spec.Env...)
	}

	outF, errF, err := s.spec.Log.ChildStdio(s.spec.Name)
	if err != nil {
		return s.failTransition(s.wrapFS(err), staleCleared)
	}
	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		closeIfOpen(outF)
		closeIfOpen(errF)
		return s.failTransition(err, staleCleared)
	}
	cmd.Stdin = null
	cmd.Stdout = null
	cmd.Stderr = null
	if outF != nil {
		cmd.Stdout = outF
	}
	if errF != nil {
		cmd.Stderr = errF
	}

	startErr := cmd.Start()
	// The child holds its own descriptors after fork; our copies are done.
	_ = null.Close()
	closeIfOpen(outF)
	closeIfOpen(errF)
	if startErr != nil {
		return s.failTransition(mapStartError(startErr), staleCleared)
	}

	pid := cmd.Process.Pid
	if err := s.rec.Write(pid, pidfile.Meta{StartUnix: probe.StartTime(pid)}); err != nil {
		// Without a record we cannot claim the slot; undo the launch.
		_ = signalGroup(pid, syscall.SIGKILL)
		_ = cmd.Wait()
		return s.failTransition(s.wrapFS(err), staleCleared)
	}

	if !s.waitStable(pid) {
		_ = s.rec.Remove()
		err := fmt.Errorf("%w: %q died within %s", ErrLaunchFailure, s.spec.Command, s.spec.StartupGrace)
		return s.failTransition(err, staleCleared)
	}
	_ = cmd.Process.Release()

	s.lg.Info("service started", "name", s.spec.Name, "pid", pid)
	metrics.IncStart(s.spec.Name)
	metrics.SetUp(s.spec.Name, true)
	s.recordEvent(store.EventStarted, pid, "")
	return Result{Outcome: OutcomeStarted, PID: pid, StaleCleared: staleCleared}
}

// Stop terminates the recorded process: graceful signal, bounded polling,
// then two forceful windows before giving up. Stopping a stopped service is
// a no-op reported as NotRunning. On termination timeout the record is
// deliberately preserved; claiming the slot free would be a lie.
func (s *Supervisor) Stop(ctx context.Context) Result {
	lock, err := pidfile.NewLock(s.rec.Path)
	if err != nil {
		return s.fail(s.wrapFS(err))
	}
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	if err := lock.Acquire(lockCtx); err != nil {
		return s.fail(err)
	}
	defer func() { _ = lock.Release() }()

	pid, m, err := s.rec.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Outcome: OutcomeNotRunning}
		}
		return s.fail(err)
	}
	if !probe.SameProcess(pid, m.StartUnix) {
		s.lg.Info("clearing stale pid record", "name", s.spec.Name, "pid", pid, "path", s.rec.Path)
		_ = s.rec.Remove()
		metrics.IncStaleCleared(s.spec.Name)
		s.recordEvent(store.EventStaleCleared, pid, "")
		return Result{Outcome: OutcomeStaleLockCleared, StaleCleared: true}
	}

	sig := s.stopSignal()
	s.lg.Info("stopping service", "name", s.spec.Name, "pid", pid, "signal", sig)
	if err := signalGroup(pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return s.fail(fmt.Errorf("%w: signal pid %d: %v", ErrPermissionDenied, pid, err))
	}

	dead := s.waitGone(ctx, pid, m.StartUnix, s.spec.StopTimeout)
	for i := 0; i < 2 && !dead; i++ {
		s.lg.Warn("graceful stop timed out, escalating", "name", s.spec.Name, "pid", pid)
		metrics.IncKillEscalation(s.spec.Name)
		_ = signalGroup(pid, syscall.SIGKILL)
		dead = s.waitGone(ctx, pid, m.StartUnix, s.spec.KillTimeout)
	}
	if !dead {
		err := fmt.Errorf("%w: pid %d survived %s + 2x%s", ErrTerminationTimeout,
			pid, s.spec.StopTimeout, s.spec.KillTimeout)
		return Result{Outcome: OutcomeFailed, PID: pid, Err: s.observe(err)}
	}

	if err := s.rec.Remove(); err != nil {
		return s.fail(s.wrapFS(err))
	}
	s.lg.Info("service stopped", "name", s.spec.Name, "pid", pid)
	metrics.IncStop(s.spec.Name)
	metrics.SetUp(s.spec.Name, false)
	s.recordEvent(store.EventStopped, pid, "")
	return Result{Outcome: OutcomeStopped, PID: pid}
}

// Restart is Stop followed by Start with a brief pause so OS resources
// (sockets, file locks) release. A failed Stop propagates; otherwise the
// Start result is returned.
func (s *Supervisor) Restart(ctx context.Context) Result {
	st := s.Stop(ctx)
	if st.IsFailure() {
		return st
	}
	select {
	case <-time.After(s.spec.RestartPause):
	case <-ctx.Done():
		return s.fail(ctx.Err())
	}
	res := s.Start(ctx)
	if res.Outcome == OutcomeStarted {
		metrics.IncRestart(s.spec.Name)
	}
	return res
}

// Status is a pure read: it probes liveness without mutating the record, so
// it is safe to call from monitoring loops at any frequency. A stale record
// is reported as NotRunning but left in place; only mutating operations
// clean up state.
func (s *Supervisor) Status() Result {
	pid, m, err := s.rec.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Outcome: OutcomeNotRunning}
		}
		// Unreadable or malformed record: nothing provably running.
		return Result{Outcome: OutcomeNotRunning, Err: err}
	}
	if probe.SameProcess(pid, m.StartUnix) {
		return Result{Outcome: OutcomeAlreadyRunning, PID: pid}
	}
	return Result{Outcome: OutcomeNotRunning, PID: pid}
}

// Reload delivers the reconfiguration signal to a live service so it
// re-reads its own config without restarting.
func (s *Supervisor) Reload() Result {
	pid, ok := s.livePID()
	if !ok {
		return Result{Outcome: OutcomeNotRunning}
	}
	sig := s.reloadSignal()
	if err := signalProcess(pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return Result{Outcome: OutcomeNotRunning, PID: pid}
		}
		return s.fail(fmt.Errorf("%w: signal pid %d: %v", ErrPermissionDenied, pid, err))
	}
	s.lg.Info("service reloaded", "name", s.spec.Name, "pid", pid, "signal", sig)
	s.recordEvent(store.EventReloaded, pid, "")
	return Result{Outcome: OutcomeReloaded, PID: pid}
}

// livePID reports the recorded PID if it provably belongs to our service.
func (s *Supervisor) livePID() (int, bool) {
	pid, m, err := s.rec.Read()
	if err != nil {
		return 0, false
	}
	if !probe.SameProcess(pid, m.StartUnix) {
		return 0, false
	}
	return pid, true
}

// waitStable polls liveness through the startup grace window, reaping the
// child if it exits immediately (bad executable inside a shell wrapper,
// missing library, config error).
func (s *Supervisor) waitStable(pid int) bool {
	deadline := time.Now().Add(s.spec.StartupGrace)
	for {
		probe.Reap(pid)
		if !probe.Alive(pid) {
			return false
		}
		if time.Now().After(deadline) {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// waitGone polls for process death with bounded backoff up to window.
func (s *Supervisor) waitGone(ctx context.Context, pid int, startUnix int64, window time.Duration) bool {
	deadline := time.Now().Add(window)
	interval := 25 * time.Millisecond
	for {
		probe.Reap(pid)
		if !probe.SameProcess(pid, startUnix) {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		time.Sleep(interval)
		if interval < 250*time.Millisecond {
			interval *= 2
		}
	}
}

// ensureRecordDir creates the PID-file parent directory with ownership
// matching the run-as identity. Insufficient permissions fail loudly with a
// distinct error rather than surfacing later as an opaque write failure.
func (s *Supervisor) ensureRecordDir() error {
	dir := filepath.Dir(s.rec.Path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create pid directory %s: %v", ErrPermissionDenied, dir, err)
	}
	cred, err := lookupCredential(s.spec.User, s.spec.Group)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if cred != nil {
		if err := os.Chown(dir, int(cred.Uid), int(cred.Gid)); err != nil {
			return fmt.Errorf("%w: chown pid directory %s: %v", ErrPermissionDenied, dir, err)
		}
	}
	return nil
}

func (s *Supervisor) stopSignal() syscall.Signal {
	sig, _ := parseSignal(s.spec.StopSignal) // validated at construction
	if sig == 0 {
		sig = syscall.SIGTERM
	}
	return sig
}

func (s *Supervisor) reloadSignal() syscall.Signal {
	sig, _ := parseSignal(s.spec.ReloadSignal)
	if sig == 0 {
		sig = syscall.SIGHUP
	}
	return sig
}

// wrapFS tags filesystem errors caused by insufficient permissions.
func (s *Supervisor) wrapFS(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

// observe logs and counts a failure before it is returned.
func (s *Supervisor) observe(err error) error {
	reason := FailureReason(err)
	s.lg.Error("operation failed", "name", s.spec.Name, "reason", reason, "err", err)
	metrics.IncFailure(s.spec.Name, reason)
	s.recordEvent(store.EventFailed, 0, err.Error())
	return err
}

func (s *Supervisor) fail(err error) Result { return failure(s.observe(err)) }

func (s *Supervisor) failTransition(err error, staleCleared bool) Result {
	r := failure(s.observe(err))
	r.StaleCleared = staleCleared
	return r
}

func (s *Supervisor) recordEvent(event string, pid int, detail string) {
	if s.st == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rec := store.Record{Name: s.spec.Name, PID: pid, Event: event, Detail: detail, OccurredAt: time.Now().UTC()}
	if err := s.st.RecordEvent(ctx, rec); err != nil {
		s.lg.Debug("event store write failed", "event", event, "err", err)
	}
}

// checkExecutable rejects commands that cannot possibly run, mirroring the
// classic init-script `test -x $DAEMON` guard. Shell-wrapped commands are
// checked for the shell itself; the wrapped line is verified by the startup
// grace probe instead.
func checkExecutable(cmd *exec.Cmd) error {
	if cmd.Err != nil {
		return fmt.Errorf("%w: %v", ErrMissingExecutable, cmd.Err)
	}
	fi, err := os.Stat(cmd.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingExecutable, cmd.Path, err)
	}
	if !fi.Mode().IsRegular() || fi.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrMissingExecutable, cmd.Path)
	}
	return nil
}

// mapStartError classifies exec.Cmd.Start failures.
func mapStartError(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrMissingExecutable, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}
}

func closeIfOpen(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
