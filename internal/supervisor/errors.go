package supervisor

import "errors"

// Sentinel errors carried inside failed Results. Callers match with
// errors.Is to choose exit codes and messages.
var (
	// ErrInvalidSpec marks a malformed Spec; surfaced at construction only.
	ErrInvalidSpec = errors.New("invalid service spec")

	// ErrMissingExecutable means the spec points at a non-existent or
	// non-executable command. Fatal, no retry, no PID record written.
	ErrMissingExecutable = errors.New("missing or non-executable command")

	// ErrPermissionDenied covers identity switches, PID directory creation
	// and signal delivery the invoking user is not allowed to perform.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLaunchFailure means the child exited during the startup grace
	// window; the PID record is cleaned up before this is returned.
	ErrLaunchFailure = errors.New("process exited during startup")

	// ErrTerminationTimeout means Stop could not confirm death even after
	// forceful signals. The PID record is deliberately left in place: the
	// slot cannot be claimed free.
	ErrTerminationTimeout = errors.New("termination timeout")
)

// FailureReason maps an error to a stable label for metrics and the event
// store.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingExecutable):
		return "missing_executable"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrLaunchFailure):
		return "launch_failure"
	case errors.Is(err, ErrTerminationTimeout):
		return "termination_timeout"
	default:
		return "other"
	}
}
