// Package lockfile guards single-instance processes, such as the
// reconciliation sweeper, with an advisory lock file next to the database.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileName is the sweeper lock inside the lock directory.
const FileName = "sweep.lock"

// ErrLockBusy is returned when another process holds the lock.
var ErrLockBusy = errors.New("lock held by another process")

// LockInfo is written into the lock file by its holder.
type LockInfo struct {
	PID       int       `json:"pid"`
	Database  string    `json:"database"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Lock is a held lock. Release it when the guarded work ends.
type Lock struct {
	f    *os.File
	path string
}

// Acquire takes the exclusive lock in dir without waiting. If another process
// holds it the returned error wraps ErrLockBusy and names the holder's PID
// when known.
func Acquire(dir string, info LockInfo) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // path is under the data directory
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := FlockExclusiveNonBlock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			if holder, rerr := ReadLockInfo(dir); rerr == nil && holder.PID > 0 {
				return nil, fmt.Errorf("%w (pid %d)", ErrLockBusy, holder.PID)
			}
		}
		return nil, err
	}

	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	data, err := json.Marshal(info)
	if err != nil {
		_ = FlockUnlock(f)
		_ = f.Close()
		return nil, err
	}
	err = f.Truncate(0)
	if err == nil {
		_, err = f.WriteAt(data, 0)
	}
	if err != nil {
		_ = FlockUnlock(f)
		_ = f.Close()
		return nil, fmt.Errorf("write lock info: %w", err)
	}
	return &Lock{f: f, path: path}, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	// Remove first so a waiting process never locks a file we are deleting.
	_ = os.Remove(l.path)
	err := FlockUnlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// ReadLockInfo reads the holder information from dir's lock file. A file
// holding only a PID is accepted as well.
func ReadLockInfo(dir string) (*LockInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName)) //nolint:gosec // fixed name under dir
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err == nil {
		return &info, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("unrecognized lock file content")
	}
	return &LockInfo{PID: pid}, nil
}

// Holder reports whether some process currently holds the lock in dir and,
// when it does, what it wrote into the file.
func Holder(dir string) (bool, *LockInfo) {
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_RDWR, 0) //nolint:gosec // fixed name under dir
	if err != nil {
		return false, nil
	}
	defer f.Close()

	if err := FlockExclusiveNonBlock(f); err != nil {
		info, _ := ReadLockInfo(dir)
		return true, info
	}
	_ = FlockUnlock(f)
	return false, nil
}

// IsProcessRunning reports whether pid names a live process.
func IsProcessRunning(pid int) bool {
	return isProcessRunning(pid)
}
