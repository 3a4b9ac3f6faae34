//go:build !windows

package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/loykin/supervisr"
)

func exitCodeOf(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if !errors.As(err, &ee) {
		t.Fatalf("not an exitError: %v", err)
	}
	return ee.code
}

func TestReportExitCodes(t *testing.T) {
	cases := []struct {
		name       string
		res        supervisr.Result
		statusVerb bool
		want       int
	}{
		{"started", supervisr.Result{Outcome: supervisr.OutcomeStarted, PID: 1}, false, exitOK},
		{"already running", supervisr.Result{Outcome: supervisr.OutcomeAlreadyRunning, PID: 1}, false, exitOK},
		{"stopped", supervisr.Result{Outcome: supervisr.OutcomeStopped, PID: 1}, false, exitOK},
		{"stop on not running", supervisr.Result{Outcome: supervisr.OutcomeNotRunning}, false, exitOK},
		{"status not running", supervisr.Result{Outcome: supervisr.OutcomeNotRunning}, true, exitNotRunning},
		{"status running", supervisr.Result{Outcome: supervisr.OutcomeAlreadyRunning, PID: 1}, true, exitOK},
		{"stale cleared", supervisr.Result{Outcome: supervisr.OutcomeStaleLockCleared, StaleCleared: true}, false, exitOK},
		{"reloaded", supervisr.Result{Outcome: supervisr.OutcomeReloaded, PID: 1}, false, exitOK},
		{
			"generic failure",
			supervisr.Result{Outcome: supervisr.OutcomeFailed, Err: supervisr.ErrTerminationTimeout},
			false, exitFailure,
		},
		{
			"missing executable",
			supervisr.Result{Outcome: supervisr.OutcomeFailed, Err: fmt.Errorf("%w: /usr/bin/nope", supervisr.ErrMissingExecutable)},
			false, exitMissingExec,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCodeOf(t, report("svc", tc.res, tc.statusVerb)); got != tc.want {
				t.Fatalf("exit code %d, want %d", got, tc.want)
			}
		})
	}
}

func TestUsageErrCarriesCode(t *testing.T) {
	err := usageErr("bad flag %q", "--frob")
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitUsage {
		t.Fatalf("usageErr: %v", err)
	}
	if ee.Error() != `bad flag "--frob"` {
		t.Fatalf("message: %q", ee.Error())
	}
}

func TestBuildSupervisorRejectsBadSpec(t *testing.T) {
	g := &GlobalFlags{}
	f := &ServiceFlags{Name: "svc"} // no command, no pidfile
	_, err := buildSupervisor(g, f)
	if exitCodeOf(t, err) != exitUsage {
		t.Fatalf("expected usage exit code, got %v", err)
	}
}

func TestBuildRootHasAllSubcommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{
		"start": false, "stop": false, "restart": false,
		"status": false, "reload": false, "serve": false,
	}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatalf("persistent --config flag missing")
	}
}
