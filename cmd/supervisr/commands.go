//go:build !windows

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/loykin/supervisr"
	"github.com/loykin/supervisr/internal/logger"
)

// Exit codes follow init-script conventions: 0 success, 3 service not
// running (status only), 4 missing executable, 64 invalid invocation,
// 1 any other failure.
const (
	exitOK          = 0
	exitFailure     = 1
	exitNotRunning  = 3
	exitMissingExec = 4
	exitUsage       = 64
)

// exitError carries a specific process exit code up to main.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func usageErr(format string, args ...any) error {
	return &exitError{code: exitUsage, msg: fmt.Sprintf(format, args...)}
}

// buildSupervisor assembles a supervisor from the config file when given,
// otherwise from the service flags.
func buildSupervisor(g *GlobalFlags, f *ServiceFlags) (*supervisr.Supervisor, error) {
	var spec supervisr.Spec
	var logCfg logger.Config
	storeDSN := f.StoreDSN

	if g.ConfigPath != "" {
		fc, err := supervisr.LoadConfig(g.ConfigPath)
		if err != nil {
			return nil, usageErr("%v", err)
		}
		spec = fc.Service
		logCfg = fc.Log
		if storeDSN == "" {
			storeDSN = fc.Store.DSN
		}
	} else {
		spec = supervisr.Spec{
			Name:         f.Name,
			Command:      f.Command,
			WorkDir:      f.WorkDir,
			User:         f.User,
			Group:        f.Group,
			PIDFile:      f.PIDFile,
			Env:          f.Env,
			StopSignal:   f.StopSignal,
			ReloadSignal: f.ReloadSignal,
			StopTimeout:  f.StopTimeout,
			KillTimeout:  f.KillTimeout,
			StartupGrace: f.StartupGrace,
		}
		logCfg = logger.Config{ChildDir: f.ChildLogDir}
		spec.Log = logCfg
	}

	sup, err := supervisr.New(spec)
	if err != nil {
		return nil, usageErr("%v", err)
	}
	sup.SetLogger(supervisr.NewLogger(logCfg))
	if storeDSN != "" {
		st, err := supervisr.NewStore(storeDSN)
		if err != nil {
			return nil, fmt.Errorf("open event store: %w", err)
		}
		if err := sup.SetStore(st); err != nil {
			return nil, fmt.Errorf("event store schema: %w", err)
		}
	}
	return sup, nil
}

// report prints a human-readable line for the result and converts it to an
// error carrying the right exit code. statusVerb switches to the LSB
// status convention where "not running" is exit 3 rather than success.
func report(name string, res supervisr.Result, statusVerb bool) error {
	switch res.Outcome {
	case supervisr.OutcomeStarted:
		fmt.Printf("%s: started (pid %d)\n", name, res.PID)
	case supervisr.OutcomeAlreadyRunning:
		if statusVerb {
			fmt.Printf("%s: running (pid %d)\n", name, res.PID)
		} else {
			fmt.Printf("%s: already running (pid %d)\n", name, res.PID)
		}
	case supervisr.OutcomeStopped:
		fmt.Printf("%s: stopped\n", name)
	case supervisr.OutcomeNotRunning:
		fmt.Printf("%s: not running\n", name)
		if statusVerb {
			return &exitError{code: exitNotRunning, msg: ""}
		}
	case supervisr.OutcomeReloaded:
		fmt.Printf("%s: reloaded (pid %d)\n", name, res.PID)
	case supervisr.OutcomeStaleLockCleared:
		fmt.Printf("%s: cleared stale pid record\n", name)
	case supervisr.OutcomeFailed:
		code := exitFailure
		if errors.Is(res.Err, supervisr.ErrMissingExecutable) {
			code = exitMissingExec
		}
		return &exitError{code: code, msg: fmt.Sprintf("%s: %v", name, res.Err)}
	}
	if res.StaleCleared {
		fmt.Printf("%s: stale pid record was cleared\n", name)
	}
	return nil
}

type operation func(ctx context.Context, sup *supervisr.Supervisor) supervisr.Result

func runOperation(g *GlobalFlags, f *ServiceFlags, statusVerb bool, op operation) error {
	sup, err := buildSupervisor(g, f)
	if err != nil {
		return err
	}
	res := op(context.Background(), sup)
	return report(sup.Name(), res, statusVerb)
}
