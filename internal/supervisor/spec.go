package supervisor

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/loykin/supervisr/internal/logger"
)

// Default lifecycle timings. StopTimeout matches the classic init-script
// escalation window; KillTimeout is applied twice (KILL, then a final
// unconditional KILL) mirroring start-stop-daemon's TERM/30/KILL/5 retry
// schedule.
const (
	DefaultStopTimeout  = 30 * time.Second
	DefaultKillTimeout  = 5 * time.Second
	DefaultStartupGrace = 1 * time.Second
	DefaultRestartPause = 1 * time.Second
)

// Spec describes the one service a Supervisor owns. It is immutable after
// construction: New copies it and never mutates the caller's value.
type Spec struct {
	Name    string   `json:"name" mapstructure:"name"`
	Command string   `json:"command" mapstructure:"command"` // command line to launch (shell-aware)
	WorkDir string   `json:"work_dir" mapstructure:"work_dir"`
	Env     []string `json:"env" mapstructure:"env"` // extra KEY=VALUE entries appended to the OS env

	// Run-as identity. Empty means inherit the invoking user.
	User  string `json:"user" mapstructure:"user"`
	Group string `json:"group" mapstructure:"group"`

	PIDFile string `json:"pid_file" mapstructure:"pidfile"`

	StopSignal   string `json:"stop_signal" mapstructure:"stop_signal"`     // default TERM
	ReloadSignal string `json:"reload_signal" mapstructure:"reload_signal"` // default HUP

	StopTimeout  time.Duration `json:"stop_timeout" mapstructure:"stop_timeout"`
	KillTimeout  time.Duration `json:"kill_timeout" mapstructure:"kill_timeout"`
	StartupGrace time.Duration `json:"startup_grace" mapstructure:"startup_grace"`
	RestartPause time.Duration `json:"restart_pause" mapstructure:"restart_pause"`

	Log logger.Config `json:"log" mapstructure:"log"`
}

// Validate checks the spec's shape. Identity resolution and executable
// checks are deferred to Start where they map to run-time failures; this
// catches programming-contract violations only.
func (s *Spec) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if strings.ContainsAny(name, " \t\n\r/\\") {
		return fmt.Errorf("%w: name %q contains whitespace or path separators", ErrInvalidSpec, name)
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("%w: command is required", ErrInvalidSpec)
	}
	if strings.TrimSpace(s.PIDFile) == "" {
		return fmt.Errorf("%w: pidfile path is required", ErrInvalidSpec)
	}
	if s.StopTimeout < 0 || s.KillTimeout < 0 || s.StartupGrace < 0 || s.RestartPause < 0 {
		return fmt.Errorf("%w: timeouts cannot be negative", ErrInvalidSpec)
	}
	if _, err := parseSignal(s.StopSignal); err != nil {
		return fmt.Errorf("%w: stop_signal: %v", ErrInvalidSpec, err)
	}
	if _, err := parseSignal(s.ReloadSignal); err != nil {
		return fmt.Errorf("%w: reload_signal: %v", ErrInvalidSpec, err)
	}
	if s.Group != "" && s.User == "" {
		return fmt.Errorf("%w: group requires user", ErrInvalidSpec)
	}
	return nil
}

// withDefaults returns a copy with zero-valued timings filled in.
func (s Spec) withDefaults() Spec {
	if s.StopTimeout == 0 {
		s.StopTimeout = DefaultStopTimeout
	}
	if s.KillTimeout == 0 {
		s.KillTimeout = DefaultKillTimeout
	}
	if s.StartupGrace == 0 {
		s.StartupGrace = DefaultStartupGrace
	}
	if s.RestartPause == 0 {
		s.RestartPause = DefaultRestartPause
	}
	return s
}

// BuildCommand constructs an *exec.Cmd for the spec's command line. It
// avoids invoking a shell when not necessary, and respects an explicit
// shell invocation already present in the command string (e.g.
// "sh -c 'echo hi'"), avoiding double-wrapping with another shell.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	// Validate rejects empty commands; guard anyway.
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if afterC, ok := parseExplicitShell(cmdStr); ok {
		// Absolute shell path avoids PATH dependency when Env is overridden.
		// #nosec G204
		return exec.Command("/bin/sh", "-c", afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or "/bin/sh -c
// <ARG>" at the beginning of cmdStr. It returns (afterCArg, true) when
// matched, preserving the substring after "-c " verbatim except for one
// stripped pair of outer quotes.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
