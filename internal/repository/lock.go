package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockSuffix = ".lock"

// SessionLock is the exclusive lock a store holds while a session is open.
type SessionLock struct {
	locker *flock.Flock
}

// AcquireLock takes the lock for the store at path without blocking.
func AcquireLock(path string) (*SessionLock, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	locker := flock.New(path + lockSuffix)

	ok, err := locker.TryLock()
	if err != nil {
		_ = locker.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		_ = locker.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	return &SessionLock{locker: locker}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *SessionLock) Release() error {
	if l == nil || l.locker == nil {
		return nil
	}
	err := l.locker.Close()
	l.locker = nil
	return err
}
