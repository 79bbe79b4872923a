// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// fileLock is a single-process-instance guard via a non-blocking flock,
// adapted from cmd/cie/queue.go's IndexQueue.TryAcquireLock.
// That used one lock per project directory to keep concurrent CLI
// invocations from indexing the same repo twice; here it guards one
// Scheduler process per deployment, since §4.12 assumes a single scheduler
// instance and documents the lock file as the mechanism a multi-process
// deployment would need.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// TryAcquire attempts to take the lock without blocking. false, nil means
// another process already holds it.
func (l *fileLock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return false, fmt.Errorf("scheduler: open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("scheduler: flock: %w", err)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix())

	l.file = f
	return true, nil
}

// Release drops the lock.
func (l *fileLock) Release() {
	if l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
