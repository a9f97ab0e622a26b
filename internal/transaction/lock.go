// Package transaction serialises installs into the same prefix with an
// exclusive lock file.
package transaction

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
)

var (
	ErrLockExists = errors.New("install lock exists: another install into this prefix may be in progress")
)

// Lock represents an install lock.
type Lock struct {
	path string
	file *os.File
}

// LockName derives a lock file name from the install prefix, so installs
// into different prefixes do not block each other.
func LockName(prefix string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(prefix)))
	return "install-" + hex.EncodeToString(sum[:8])
}

// AcquireLock attempts to acquire the lock <dir>/<name>.lock.
// Uses O_CREATE|O_EXCL for atomic lock creation. A lock older than
// StaleLockThreshold, or whose owning process is gone, is replaced once.
func AcquireLock(ctx context.Context, dir, name string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, name+".lock")

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !isLockStale(lockPath) {
			return nil, ErrLockExists
		}
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		path: lockPath,
		file: file,
	}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

// isLockStale reports whether the lock at lockPath can be taken over.
func isLockStale(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > StaleLockThreshold {
		return true
	}

	pid, ok := readLockPID(lockPath)
	if !ok || pid == os.Getpid() {
		return false
	}
	proc, err := ps.FindProcess(pid)
	return err == nil && proc == nil
}

// readLockPID parses the pid= line of a lock file.
func readLockPID(lockPath string) (int, bool) {
	f, err := os.Open(lockPath)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if v, found := strings.CutPrefix(scanner.Text(), "pid="); found {
			pid, err := strconv.Atoi(strings.TrimSpace(v))
			return pid, err == nil && pid > 0
		}
	}
	return 0, false
}
