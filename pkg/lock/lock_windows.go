package lock

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/downfa11-org/mapped-queue/util"
	"golang.org/x/sys/windows"
)

// mutexLock is a named kernel mutex. Ownership belongs to the acquiring OS thread, so
// the goroutine stays pinned to it until Release.
type mutexLock struct {
	mu     sync.Mutex
	name   string
	handle windows.Handle
	held   bool
}

func newPlatformLock(name, storePath string) ProcessLock {
	return newMutexLock(MutexName(name, storePath))
}

// MutexName is the global kernel object name shared by all processes using storePath.
func MutexName(name, storePath string) string {
	return `Global\` + name + "_" + util.HashHex(storePath)
}

func newMutexLock(name string) *mutexLock {
	return &mutexLock{name: name}
}

func (l *mutexLock) Kind() Kind {
	return KindNamedMutex
}

func (l *mutexLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil
	}

	namePtr, err := windows.UTF16PtrFromString(l.name)
	if err != nil {
		return err
	}

	runtime.LockOSThread()
	h, err := windows.CreateMutex(nil, false, namePtr)
	if err != nil && !errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		runtime.UnlockOSThread()
		return fmt.Errorf("create mutex %s: %w", l.name, err)
	}

	event, err := windows.WaitForSingleObject(h, windows.INFINITE)
	if err != nil {
		windows.CloseHandle(h)
		runtime.UnlockOSThread()
		return fmt.Errorf("wait for mutex %s: %w", l.name, err)
	}
	if event == windows.WAIT_ABANDONED {
		util.Warn("mutex %s was abandoned by a previous owner", l.name)
	}

	l.handle = h
	l.held = true
	return nil
}

func (l *mutexLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	releaseErr := windows.ReleaseMutex(l.handle)
	closeErr := windows.CloseHandle(l.handle)
	l.handle = 0
	runtime.UnlockOSThread()

	if releaseErr != nil {
		return fmt.Errorf("release mutex %s: %w", l.name, releaseErr)
	}
	return closeErr
}
