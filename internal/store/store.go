package store

import (
	"context"
	"time"
)

// Event names recorded for a supervised service.
const (
	EventStarted      = "started"
	EventStopped      = "stopped"
	EventReloaded     = "reloaded"
	EventStaleCleared = "stale_cleared"
	EventFailed       = "failed"
)

// Record is one lifecycle event of a supervised service. Detail carries a
// human-readable reason for failed events and is empty otherwise.
type Record struct {
	Name       string
	PID        int
	Event      string
	Detail     string
	OccurredAt time.Time
}

// Store persists lifecycle events so operators can answer "when did this
// service last flap" across supervisor invocations. All implementations
// must be safe for use from short-lived CLI processes: open, write one or
// two rows, close.
type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordEvent(ctx context.Context, rec Record) error
	LastEvent(ctx context.Context, name string) (Record, error)
	Events(ctx context.Context, name string, limit int) ([]Record, error)
	Close() error
}
