//go:build !windows

package pidfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockedElsewhere is returned when the record lock is held by another
// invocation and could not be acquired within the context deadline.
var ErrLockedElsewhere = errors.New("pid record locked by another invocation")

// Lock guards mutating access to the record location. It is a sidecar
// ".lock" file next to the pidfile so that taking the lock does not itself
// create the record (record existence carries meaning).
type Lock struct {
	fl *flock.Flock
}

// NewLock prepares a lock for the given pidfile path. The parent directory
// is created if needed so that two racing first-time starts contend on the
// same inode.
func NewLock(pidPath string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(pidPath), 0o755); err != nil {
		return nil, err
	}
	return &Lock{fl: flock.New(pidPath + ".lock")}, nil
}

// Acquire takes the exclusive lock, retrying until ctx expires.
func (l *Lock) Acquire(ctx context.Context) error {
	locked, err := l.fl.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ErrLockedElsewhere
		}
		return err
	}
	if !locked {
		return ErrLockedElsewhere
	}
	return nil
}

// TryAcquire attempts the lock without blocking.
func (l *Lock) TryAcquire() (bool, error) {
	return l.fl.TryLock()
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
