package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/persist/internal/fsx"
)

// ErrLockUnavailable is returned when all acquisition attempts are exhausted
// without obtaining the lock.
var ErrLockUnavailable = errors.New("filelock: lock unavailable")

// Settings configures lock acquisition.
type Settings struct {
	// NumRetries is the maximum number of additional attempts after the
	// first. Default 3.
	NumRetries int

	// RetryDelay is the base linear back-off between attempts: attempt n
	// waits n * RetryDelay. Default 100ms.
	RetryDelay time.Duration

	Logger zerolog.Logger
}

// DefaultSettings returns the package defaults: 3 retries, 100ms base delay,
// a no-op logger.
func DefaultSettings() Settings {
	return Settings{
		NumRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		Logger:     zerolog.Nop(),
	}
}

// FileLock acquires an exclusive lock file and, on acquisition, runs
// [Recover] to reconcile the managed four-file set before returning control
// to the caller.
type FileLock struct {
	fs       fsx.FS
	paths    Paths
	settings Settings
}

// New creates a FileLock for the given paths. fs is used for the recovery
// pass run on every successful Acquire; the lock file itself is opened,
// locked, and removed through the os package.
func New(fs fsx.FS, paths Paths, settings Settings) *FileLock {
	return &FileLock{fs: fs, paths: paths, settings: settings}
}

// Releaser releases a held lock. Release is idempotent; calling it more than
// once is a no-op after the first call.
type Releaser struct {
	file     *os.File
	path     string
	released bool
}

// Release closes the lock handle and deletes the lock file. Deletion
// failure is swallowed: the lock file simply remains and the next Acquire
// reopens it.
func (r *Releaser) Release() {
	if r == nil || r.released {
		return
	}

	r.released = true

	if r.file == nil {
		return
	}

	_ = unix.Flock(int(r.file.Fd()), unix.LOCK_UN)
	_ = r.file.Close()
	_ = os.Remove(r.path)
}

// noopReleaser is returned when Acquire is cancelled before obtaining the
// lock: releasing it does nothing, since nothing was acquired.
func noopReleaser() *Releaser {
	return &Releaser{released: true}
}

// Acquire opens the lock file for exclusive use, creating it if absent,
// retrying up to settings.NumRetries times with a linearly increasing delay
// of attempt*RetryDelay between attempts. Cancellation is honored between
// attempts: if ctx is done before the lock is obtained, Acquire returns a
// no-op Releaser and ctx.Err(), having performed no file mutation.
//
// On success, Acquire runs [Recover] against paths before returning, so
// every caller observes the post-recovery, consistent file state.
func (l *FileLock) Acquire(ctx context.Context) (*Releaser, error) {
	attempts := l.settings.NumRetries + 1

	var lastErr error

	for attempt := range attempts {
		if ctx.Err() != nil {
			return noopReleaser(), ctx.Err()
		}

		file, err := l.tryAcquire()
		if err == nil {
			l.settings.Logger.Debug().Str("path", l.paths.Lock).Int("attempt", attempt+1).Msg("filelock: acquired")

			if recoverErr := Recover(l.fs, l.paths, l.settings.Logger); recoverErr != nil {
				_ = unix.Flock(int(file.Fd()), unix.LOCK_UN)
				_ = file.Close()
				_ = os.Remove(l.paths.Lock)

				return noopReleaser(), fmt.Errorf("filelock: recovery failed: %w", recoverErr)
			}

			return &Releaser{file: file, path: l.paths.Lock}, nil
		}

		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := time.Duration(attempt+1) * l.settings.RetryDelay

		l.settings.Logger.Debug().Str("path", l.paths.Lock).Int("attempt", attempt+1).Dur("delay", delay).
			Msg("filelock: retrying")

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return noopReleaser(), ctx.Err()
		case <-timer.C:
		}
	}

	return noopReleaser(), fmt.Errorf("%w: %s: %w", ErrLockUnavailable, l.paths.Lock, lastErr)
}

// tryAcquire makes a single non-blocking attempt to open and exclusively
// flock the lock file.
func (l *FileLock) tryAcquire() (*os.File, error) {
	file, err := os.OpenFile(l.paths.Lock, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock: %w", err)
	}

	return file, nil
}
