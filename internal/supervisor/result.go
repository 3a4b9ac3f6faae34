package supervisor

// Outcome classifies the result of a supervision operation. Expected
// conditions (already running, not running, stale lock) are outcomes, not
// errors; only OutcomeFailed carries a non-nil Result.Err.
type Outcome int

const (
	OutcomeStarted Outcome = iota
	OutcomeAlreadyRunning
	OutcomeStopped
	OutcomeNotRunning
	OutcomeReloaded
	OutcomeStaleLockCleared
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeAlreadyRunning:
		return "already-running"
	case OutcomeStopped:
		return "stopped"
	case OutcomeNotRunning:
		return "not-running"
	case OutcomeReloaded:
		return "reloaded"
	case OutcomeStaleLockCleared:
		return "stale-lock-cleared"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is returned by every supervision operation. PID is the process the
// outcome refers to when known. StaleCleared reports that a stale PID
// record was healed on the way to the outcome.
type Result struct {
	Outcome      Outcome
	PID          int
	StaleCleared bool
	Err          error
}

// IsFailure reports whether the operation failed.
func (r Result) IsFailure() bool { return r.Outcome == OutcomeFailed }

func failure(err error) Result { return Result{Outcome: OutcomeFailed, Err: err} }
