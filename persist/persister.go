// Package persist implements a crash-safe, concurrency-safe single-value
// file persister: a typed value stored in one file on an ordinary
// filesystem, updated atomically via a lock-file protocol and a two-rename
// commit pivot, with deterministic forward/backward recovery on crash.
package persist

import "context"

// Callback is invoked once per [DataPersister.Update] call with a
// [TransactionContext] seeded from the current value. The callback must
// call at most one of Commit or RemoveAndCommit on tc; calling neither
// leaves the update a no-op.
//
// A non-nil error returned here is captured into the returned
// [UpdateResult.Updated] rather than bubbling up as a Go error — mirroring
// how a captured deserialize or I/O failure is reported. The exception is
// when ctx has been cancelled by the time the callback returns: then
// ctx.Err() is returned as the Go error instead.
type Callback[T any] func(ctx context.Context, tc *TransactionContext[T]) error

// DataPersister is the caller-facing contract: load the current value, or
// perform an atomic read-modify-write update via a callback.
//
// Load never returns an error for expected conditions (missing file,
// deserialize failure): those are encoded in the returned [LoadResult].
// Cancellation is the one condition that always propagates as the second
// return value.
type DataPersister[T any] interface {
	// Load returns the current value, or an error if ctx is cancelled before
	// the operation completes.
	Load(ctx context.Context, correlationTag any) (LoadResult[T], error)

	// Update performs an atomic read-modify-write. callback decides whether
	// and what to commit via the TransactionContext it receives. Update
	// returns an error only for cancellation; all other failures are
	// captured into the returned UpdateResult.
	Update(ctx context.Context, correlationTag any, callback Callback[T]) (UpdateResult[T], error)
}

// ReadFunc deserializes a value from the given reader. The persister owns
// stream lifetime and positioning; implementations must not close r.
type ReadFunc[T any] func(ctx context.Context, r Reader) (T, error)

// WriteFunc serializes v to the given writer. The persister owns stream
// lifetime; implementations must not close w.
type WriteFunc[T any] func(ctx context.Context, v T, w Writer) error

// Reader is the stream handed to a [ReadFunc]. It supports Seek because
// some serialization formats need to know length or rewind (for example
// after a speculative partial parse).
type Reader interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
}

// Writer is the stream handed to a [WriteFunc].
type Writer interface {
	Write(p []byte) (int, error)
}
