//go:build !windows

package probe

import (
	"bytes"
	"errors"
	"os"
	"strconv"
	"syscall"
)

// Alive returns true if a process with the given pid exists (or EPERM,
// which still proves existence). Zombies are reported as dead: a child
// that exited but was not reaped yet must not count as a running service.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// SameProcess reports whether pid still refers to the process that was
// observed starting at startUnix. A zero startUnix disables the reuse
// guard and falls back to a plain existence check.
func SameProcess(pid int, startUnix int64) bool {
	if !Alive(pid) {
		return false
	}
	if startUnix <= 0 {
		return true
	}
	cur := StartTime(pid)
	if cur > 0 && cur != startUnix {
		return false // PID recycled by an unrelated process
	}
	return true
}

// isZombie returns true if /proc/<pid>/status reports a zombie state (Z).
// On systems without procfs the file read fails and we report false.
func isZombie(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
