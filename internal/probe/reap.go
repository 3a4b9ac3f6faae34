//go:build !windows

package probe

import "syscall"

// Reap performs a non-blocking wait on pid to collect its exit status if
// it is a zombie child of the calling process. It is a no-op for processes
// we did not spawn (ECHILD) and for children that are still running.
// Returns true if the process was reaped.
func Reap(pid int) bool {
	if pid <= 0 {
		return false
	}
	var ws syscall.WaitStatus
	got, err := syscall.Wait4(pid, &ws, syscall.WNOHANG, nil)
	return err == nil && got == pid
}
