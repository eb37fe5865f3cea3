package sync

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName guards a local root against concurrent syncs into it.
const LockFileName = ".adbsink.lock"

// ErrLocked means another run already holds the root.
var ErrLocked = errors.New("another sync is already running against this directory")

// RunLock is a held filesystem lock on a local sync root.
type RunLock struct {
	fl *flock.Flock
}

// AcquireRunLock takes a non-blocking exclusive lock under localRoot.
// The lock file is one of the built-in ignored names, so it never takes
// part in the sync itself.
func AcquireRunLock(localRoot string) (*RunLock, error) {
	fl := flock.New(filepath.Join(localRoot, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", localRoot, ErrLocked)
	}
	return &RunLock{fl: fl}, nil
}

// Release drops the lock.
func (l *RunLock) Release() error {
	return l.fl.Unlock()
}
