// Package lockfile provides an advisory, best-effort single-instance
// lock for a codebase's state directory. Concurrent commands document that
// cross-process locking is not required and two concurrent indexing
// processes may corrupt snapshots; this package narrows that risk
// without turning it into a hard requirement: acquiring the lock fails
// open (returns a held *Lock anyway, as unlocked best-effort) on any
// filesystem or locking error, so a misconfigured environment never
// blocks indexing outright.
package lockfile

import (
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the advisory lock file kept inside the state directory.
const FileName = "lock"

// Lock wraps one advisory file lock. Acquired reports whether the lock
// was actually taken; when false, the caller proceeded without
// exclusivity (fail-open) and should log at its own discretion.
type Lock struct {
	flock    *flock.Flock
	Acquired bool
}

// Acquire attempts a non-blocking exclusive lock on
// "<stateDir>/lock". On any error (including lock contention) it logs a
// warning and returns a Lock with Acquired=false rather than an error,
// per the package's fail-open contract.
func Acquire(stateDir string) *Lock {
	path := filepath.Join(stateDir, FileName)
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		slog.Warn("lockfile: failed to acquire advisory lock, proceeding without it",
			slog.String("path", path), slog.String("error", err.Error()))
		return &Lock{flock: fl, Acquired: false}
	}
	if !ok {
		slog.Warn("lockfile: another process appears to hold the lock, proceeding without it",
			slog.String("path", path))
		return &Lock{flock: fl, Acquired: false}
	}
	return &Lock{flock: fl, Acquired: true}
}

// Release unlocks the file if it was acquired. Safe to call on a
// non-acquired Lock.
func (l *Lock) Release() {
	if l == nil || !l.Acquired {
		return
	}
	if err := l.flock.Unlock(); err != nil {
		slog.Warn("lockfile: failed to release advisory lock", slog.String("error", err.Error()))
	}
}
