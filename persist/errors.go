package persist

import (
	"errors"

	"github.com/calvinalkan/persist/filelock"
)

// ErrLockUnavailable is an alias for [filelock.ErrLockUnavailable], captured
// into the returned result when the underlying file lock could not be
// acquired after every retry. Callers can use
// errors.Is(result.Err(), persist.ErrLockUnavailable) without importing
// filelock directly.
var ErrLockUnavailable = filelock.ErrLockUnavailable

// ErrNotPresent documents the "value absent" condition. It is never wrapped
// or returned: absence is reported as a LoadResult state (IsAbsent), never
// as a Go error. It exists so this package's error kinds are named in one
// place.
var ErrNotPresent = errors.New("persist: value not present")

// ErrCancelled documents context cancellation. Load and Update always
// propagate ctx.Err() directly (context.Canceled or
// context.DeadlineExceeded) rather than wrapping this sentinel.
var ErrCancelled = errors.New("persist: cancelled")

// ErrDeserialize wraps a caller-supplied ReadFunc failure. Check it with
// errors.Is(result.Err(), persist.ErrDeserialize).
var ErrDeserialize = errors.New("persist: deserialize")

// ErrSerialize wraps a caller-supplied WriteFunc failure during a commit.
var ErrSerialize = errors.New("persist: serialize")

// ErrIO wraps a filesystem failure (stat, open, rename, remove) encountered
// outside of (de)serialization.
var ErrIO = errors.New("persist: io")

// ErrCallback wraps a non-nil error returned by an Update callback.
var ErrCallback = errors.New("persist: callback")
