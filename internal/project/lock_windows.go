//go:build windows

package project

import (
	"os"

	"golang.org/x/sys/windows"
)

func lockFile(f *os.File, mode LockMode) error {
	var flags uint32
	if mode == Exclusive {
		flags = windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, &windows.Overlapped{})
}

func unlockFile(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, &windows.Overlapped{})
}
