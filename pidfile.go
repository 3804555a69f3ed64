package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// pidFilePermissions matches the credential file: owner read/write only.
const pidFilePermissions = 0o600

const pidDirPermissions = 0o700

// watchPIDFileName sits next to the credential store.
const watchPIDFileName = "watch.pid"

// errNoWatcher means no watch process is running.
var errNoWatcher = errors.New("no running watch process")

// watchPIDPath returns the PID file location for the configured store.
func (a *app) watchPIDPath() string {
	return filepath.Join(filepath.Dir(a.storePath()), watchPIDFileName)
}

// writePIDFile writes the current process ID to path and holds an exclusive
// flock on it. The returned cleanup removes the file and releases the lock.
// Failing to lock means another watch process owns the store.
func writePIDFile(path string) (cleanup func(), err error) {
	if path == "" {
		return nil, errors.New("PID file path is empty: cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), pidDirPermissions); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, pidFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another watch is already running (could not lock %s)", path)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing PID file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()

		return nil, fmt.Errorf("syncing PID file: %w", err)
	}

	return func() {
		os.Remove(path)
		f.Close()
	}, nil
}

// readPIDFile reads the PID from path.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", path, err)
	}

	return pid, nil
}

// notifyWatcher sends SIGHUP to the watch process recorded in pidPath so it
// re-reads the credential store. Stale PID files are removed. Returns
// errNoWatcher when nothing is running.
func notifyWatcher(pidPath string) error {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errNoWatcher
		}

		return err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	// Signal 0 probes liveness.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidPath)

		return errNoWatcher
	}

	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("sending SIGHUP to watch (PID %d): %w", pid, err)
	}

	return nil
}

// hangupWatcher reports credential changes announced by notifyWatcher. It
// stands in for a file watch on stores that cannot be watched.
type hangupWatcher struct{}

func (hangupWatcher) Watch(ctx context.Context, onChange func()) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			onChange()
		}
	}
}

// announceChange tells a running watch process that this process changed
// a credential store it cannot watch itself. It is best effort.
func (a *app) announceChange() {
	if _, ok := a.watcher().(hangupWatcher); !ok {
		return
	}

	if err := notifyWatcher(a.watchPIDPath()); err != nil && !errors.Is(err, errNoWatcher) {
		a.logger.Debug("notifying watch process failed", slog.String("error", err.Error()))
	}
}
