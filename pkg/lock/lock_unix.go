//go:build unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/downfa11-org/mapped-queue/util"
	"golang.org/x/sys/unix"
)

// RetryInterval is the backoff between attempts on a contended file lock.
const RetryInterval = 200 * time.Millisecond

type fileLock struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewFileLock returns an advisory flock on path. The file is created on first Acquire.
func NewFileLock(path string) ProcessLock {
	return &fileLock{path: path}
}

func (l *fileLock) Kind() Kind {
	return KindFileLock
}

func (l *fileLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", l.path, err)
	}

	waited := false
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return fmt.Errorf("flock %s: %w", l.path, err)
		}
		if !waited {
			util.Debug("lock %s is held by another process, retrying every %v", l.path, RetryInterval)
			waited = true
		}
		time.Sleep(RetryInterval)
	}

	l.file = f
	return nil
}

func (l *fileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	return closeErr
}
