package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockMode selects a shared or an exclusive worktree lock.
type LockMode int

const (
	// Shared is held while reading the worktree, e.g. for dependency queries.
	Shared LockMode = iota
	// Exclusive is held while assignments are written.
	Exclusive
)

// WorktreeLock is an advisory lock on the worktree held through LockFile.
type WorktreeLock struct {
	f *os.File
}

// Lock blocks until the worktree lock is acquired in the given mode.
func Lock(paths Paths, mode LockMode) (*WorktreeLock, error) {
	if err := os.MkdirAll(filepath.Dir(paths.LockFile), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(paths.LockFile, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f, mode); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock worktree: %w", err)
	}
	return &WorktreeLock{f: f}, nil
}

// Unlock releases the lock. It is safe to call more than once.
func (l *WorktreeLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
