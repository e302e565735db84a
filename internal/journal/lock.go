package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockFileName   = "journal.lock"
	defaultTimeout = 500 * time.Millisecond
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// writeLocker manages exclusive write access to the journal using OS file
// locks. The lock is automatically released when the process exits
// (including crashes).
type writeLocker struct {
	lockPath string
	lockFile *os.File
}

func newWriteLocker(dir string) *writeLocker {
	return &writeLocker{lockPath: filepath.Join(dir, lockFileName)}
}

// acquire attempts to get an exclusive write lock with the given timeout.
// The error on timeout includes holder info for diagnostics.
func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.lockFile = f

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff

	for {
		// Non-blocking exclusive lock (platform-specific)
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return nil
		}

		if time.Now().After(deadline) {
			holder := l.readHolder()
			l.lockFile.Close()
			l.lockFile = nil
			return fmt.Errorf("journal lock timeout after %v (holder: %s)", timeout, holder)
		}

		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// release releases the write lock.
func (l *writeLocker) release() error {
	if l.lockFile == nil {
		return nil
	}

	l.lockFile.Truncate(0)
	l.unlock()
	l.lockFile.Close()
	l.lockFile = nil

	return nil
}

// writeHolder records the current process in the lock file for diagnostics.
func (l *writeLocker) writeHolder() {
	if l.lockFile == nil {
		return
	}
	l.lockFile.Truncate(0)
	l.lockFile.Seek(0, 0)
	fmt.Fprintf(l.lockFile, "pid:%d since:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	l.lockFile.Sync()
}

// readHolder reads holder info from the lock file, flagging dead holders.
func (l *writeLocker) readHolder() string {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return "unknown"
	}

	holder := strings.TrimSpace(string(data))
	if !strings.HasPrefix(holder, "pid:") {
		return "unknown"
	}

	pidStr := strings.TrimPrefix(holder, "pid:")
	if i := strings.IndexByte(pidStr, ' '); i >= 0 {
		pidStr = pidStr[:i]
	}
	if pid, err := strconv.Atoi(pidStr); err == nil && !isProcessAlive(pid) {
		return holder + " (STALE - process dead)"
	}

	return holder
}

// tryLock and unlock are implemented in platform-specific files:
// - lock_unix.go for Unix systems (flock)
// - lock_windows.go for Windows (LockFileEx)
