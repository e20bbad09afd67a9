package lock

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind names the primitive behind a ProcessLock.
type Kind string

const (
	KindNamedMutex Kind = "named-mutex"
	KindFileLock   Kind = "file-lock"
	KindNoop       Kind = "noop"
)

// ProcessLock is an advisory lock shared by every process that opens the same store.
// Acquire blocks until the lock is held. Release is idempotent.
type ProcessLock interface {
	Acquire() error
	Release() error
	Kind() Kind
}

// New picks the lock primitive of the running platform for name within storePath.
func New(name, storePath string) (ProcessLock, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("lock name must not be empty")
	}
	abs, err := filepath.Abs(storePath)
	if err != nil {
		return nil, fmt.Errorf("resolve store path %s: %w", storePath, err)
	}
	return newPlatformLock(name, abs), nil
}

// LockFilePath is where the file-lock variant keeps its lock file.
func LockFilePath(name, storePath string) string {
	return filepath.Join(storePath, name+".lock")
}

type noopLock struct{}

// NewNoop returns a lock that never blocks.
func NewNoop() ProcessLock {
	return noopLock{}
}

func (noopLock) Acquire() error { return nil }
func (noopLock) Release() error { return nil }
func (noopLock) Kind() Kind     { return KindNoop }
