//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

var signalsByName = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"TERM": syscall.SIGTERM,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
}

// parseSignal resolves names like "TERM" or "SIGTERM" (case-insensitive).
// Empty input resolves to 0; callers substitute their default.
func parseSignal(name string) (syscall.Signal, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return 0, nil
	}
	n = strings.TrimPrefix(n, "SIG")
	if sig, ok := signalsByName[n]; ok {
		return sig, nil
	}
	return 0, fmt.Errorf("unknown signal %q", name)
}

// signalGroup delivers sig to the process group led by pid, falling back to
// the single process when pid is not a group leader (e.g. a service whose
// pidfile was written by a different launcher).
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err == nil || !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return syscall.Kill(pid, sig)
}

// signalProcess delivers sig to pid only.
func signalProcess(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}
