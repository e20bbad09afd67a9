package lock

func newPlatformLock(name, storePath string) ProcessLock {
	return NewFileLock(LockFilePath(name, storePath))
}
