//go:build !windows

package supervisor

import (
	"errors"
	"syscall"
	"testing"
	"time"
)

func validSpec() Spec {
	return Spec{Name: "svc", Command: "/usr/bin/ludolph", PIDFile: "/run/svc/svc.pid"}
}

func TestValidateAcceptsMinimalSpec(t *testing.T) {
	s := validSpec()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"empty name", func(s *Spec) { s.Name = "" }},
		{"whitespace name", func(s *Spec) { s.Name = "my svc" }},
		{"path separator in name", func(s *Spec) { s.Name = "a/b" }},
		{"empty command", func(s *Spec) { s.Command = "  " }},
		{"empty pidfile", func(s *Spec) { s.PIDFile = "" }},
		{"negative timeout", func(s *Spec) { s.StopTimeout = -time.Second }},
		{"unknown stop signal", func(s *Spec) { s.StopSignal = "SIGBOGUS" }},
		{"unknown reload signal", func(s *Spec) { s.ReloadSignal = "FROB" }},
		{"group without user", func(s *Spec) { s.Group = "daemon" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSpec()
			tc.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("want ErrInvalidSpec, got %v", err)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	s := validSpec().withDefaults()
	if s.StopTimeout != DefaultStopTimeout {
		t.Fatalf("StopTimeout: %v", s.StopTimeout)
	}
	if s.KillTimeout != DefaultKillTimeout {
		t.Fatalf("KillTimeout: %v", s.KillTimeout)
	}
	if s.StartupGrace != DefaultStartupGrace {
		t.Fatalf("StartupGrace: %v", s.StartupGrace)
	}
	if s.RestartPause != DefaultRestartPause {
		t.Fatalf("RestartPause: %v", s.RestartPause)
	}

	custom := validSpec()
	custom.StopTimeout = 2 * time.Second
	if got := custom.withDefaults().StopTimeout; got != 2*time.Second {
		t.Fatalf("explicit StopTimeout overwritten: %v", got)
	}
}

func TestBuildCommandDirectExec(t *testing.T) {
	s := validSpec()
	s.Command = "/bin/sleep 5"
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sleep" {
		t.Fatalf("path: %q", cmd.Path)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "5" {
		t.Fatalf("args: %v", cmd.Args)
	}
}

func TestBuildCommandShellForMetacharacters(t *testing.T) {
	s := validSpec()
	s.Command = "/usr/bin/ludolph >> /var/log/ludolph.out 2>&1"
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" {
		t.Fatalf("expected shell wrapper, got %q", cmd.Path)
	}
	if len(cmd.Args) != 3 || cmd.Args[1] != "-c" || cmd.Args[2] != s.Command {
		t.Fatalf("args: %v", cmd.Args)
	}
}

func TestBuildCommandExplicitShellNotDoubleWrapped(t *testing.T) {
	s := validSpec()
	s.Command = `sh -c 'trap "" TERM; sleep 60'`
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" {
		t.Fatalf("path: %q", cmd.Path)
	}
	if len(cmd.Args) != 3 || cmd.Args[2] != `trap "" TERM; sleep 60` {
		t.Fatalf("args: %v", cmd.Args)
	}
}

func TestParseSignal(t *testing.T) {
	cases := []struct {
		in   string
		want syscall.Signal
	}{
		{"TERM", syscall.SIGTERM},
		{"SIGTERM", syscall.SIGTERM},
		{"term", syscall.SIGTERM},
		{" hup ", syscall.SIGHUP},
		{"USR2", syscall.SIGUSR2},
		{"", 0},
	}
	for _, tc := range cases {
		got, err := parseSignal(tc.in)
		if err != nil {
			t.Fatalf("parseSignal(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseSignal(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := parseSignal("SIGSTOPALL"); err == nil {
		t.Fatalf("expected error for unknown signal")
	}
}
