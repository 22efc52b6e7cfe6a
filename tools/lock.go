package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	lockTimeout   = 5 * time.Second
	lockRetryWait = 500 * time.Millisecond
)

// fileLock is an inter-process lock: a file holding the PID of its owner.
// Locks left by dead processes are reclaimed.
type fileLock struct {
	path      string
	timeout   time.Duration
	retryWait time.Duration
	log       *zap.Logger
}

func newFileLock(path string, log *zap.Logger) *fileLock {
	return &fileLock{
		path:      path,
		timeout:   lockTimeout,
		retryWait: lockRetryWait,
		log:       log,
	}
}

// owner returns the PID stored in the lock file, 0 when there is none
func (l *fileLock) owner() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read lock file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1, nil
	}
	return pid, nil
}

// cleanStale removes the lock file unless a running process owns it
func (l *fileLock) cleanStale() error {
	pid, err := l.owner()
	if err != nil {
		return err
	}
	switch {
	case pid == 0:
		return nil
	case pid < 0:
		l.log.Warn("Corrupted lock file (invalid PID), removing", zap.String("path", l.path))
		return os.Remove(l.path)
	case isProcessRunning(pid):
		return fmt.Errorf("lock held by running process %d", pid)
	}
	l.log.Info("Stale lock detected, cleaning", zap.Int("pid", pid))
	return os.Remove(l.path)
}

// acquire takes the lock, waiting up to timeout for another process to let go
func (l *fileLock) acquire() error {
	ourPID := os.Getpid()
	if pid, err := l.owner(); err == nil && pid == ourPID {
		l.log.Debug("Lock already held by this process", zap.Int("pid", ourPID))
		return nil
	}

	start := time.Now()
	for {
		if err := l.cleanStale(); err != nil {
			elapsed := time.Since(start)
			if elapsed >= l.timeout {
				return fmt.Errorf("timeout waiting for index lock after %v: %w", elapsed.Round(time.Millisecond), err)
			}
			l.log.Info("Index locked by another process, waiting", zap.Duration("elapsed", elapsed.Round(100*time.Millisecond)))
			time.Sleep(l.retryWait)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
			return fmt.Errorf("failed to create lock directory: %w", err)
		}
		if err := os.WriteFile(l.path, []byte(strconv.Itoa(ourPID)), 0644); err != nil {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		l.log.Debug("Index lock acquired", zap.Int("pid", ourPID))
		return nil
	}
}

// release removes the lock file if this process owns it
func (l *fileLock) release() error {
	pid, err := l.owner()
	if err != nil {
		return err
	}
	if pid == 0 {
		return nil
	}
	if pid > 0 && pid != os.Getpid() {
		l.log.Warn("Lock file owned by another process, not removing", zap.Int("owner", pid), zap.Int("pid", os.Getpid()))
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	l.log.Debug("Index lock released")
	return nil
}
