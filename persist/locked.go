package persist

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/calvinalkan/persist/filelock"
	"github.com/calvinalkan/persist/internal/fsx"
)

const defaultFilePerm = 0o644

// LockedFileDataPersister is the transactional core: it implements
// [DataPersister] over a single file on disk, using [filelock.FileLock] for
// cross-process/cross-instance serialization and an in-process gate
// ([golang.org/x/sync/semaphore.Weighted] sized to one) for same-instance
// serialization.
//
// Every Load and Update enters the in-process gate first, then the
// FileLock, making operations on one instance totally ordered and
// operations across instances/processes against the same path linearize at
// the FileLock release.
type LockedFileDataPersister[T any] struct {
	fs    fsx.FS
	paths filelock.Paths
	lock  *filelock.FileLock
	gate  *semaphore.Weighted

	read  ReadFunc[T]
	write WriteFunc[T]
	equal EqualFunc[T]

	settings FileDataPersisterSettings

	// Exclusive-mode cache. Only ever read or mutated while holding gate.
	cachedHandle fsx.File
	cached       *LoadResult[T]
}

// Option configures a [LockedFileDataPersister] at construction time.
type Option[T any] func(*LockedFileDataPersister[T])

// WithEqual overrides the default equality comparer used for change
// detection and LoadResult equality.
func WithEqual[T any](equal EqualFunc[T]) Option[T] {
	return func(p *LockedFileDataPersister[T]) { p.equal = equal }
}

// WithSettings overrides [DefaultSettings].
func WithSettings[T any](settings FileDataPersisterSettings) Option[T] {
	return func(p *LockedFileDataPersister[T]) { p.settings = settings }
}

// WithFS overrides the filesystem implementation. Intended for tests that
// need to observe or constrain file operations; production callers should
// leave this at its default ([fsx.NewReal]).
func WithFS[T any](fs fsx.FS) Option[T] {
	return func(p *LockedFileDataPersister[T]) { p.fs = fs }
}

// NewLockedFileDataPersister creates a persister for path, using read/write
// to (de)serialize T across the wire. Paths.New, .Old, and .Lock are derived
// from path per [filelock.For].
func NewLockedFileDataPersister[T any](
	path string, read ReadFunc[T], write WriteFunc[T], opts ...Option[T],
) *LockedFileDataPersister[T] {
	p := &LockedFileDataPersister[T]{
		fs:       fsx.NewReal(),
		paths:    filelock.For(path),
		read:     read,
		write:    write,
		settings: DefaultSettings(),
		gate:     semaphore.NewWeighted(1),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.lock = filelock.New(p.fs, p.paths, filelock.Settings{
		NumRetries: p.settings.NumRetries,
		RetryDelay: p.settings.RetryDelay,
		Logger:     p.settings.Logger,
	})

	return p
}

// Compile-time interface check.
var _ DataPersister[int] = (*LockedFileDataPersister[int])(nil)

// Load acquires the in-process gate, then the FileLock (which runs recovery
// before returning), then returns the exclusive-mode cache if populated, or
// reads COMMITTED fresh otherwise. A missing COMMITTED yields Absent; a
// deserialize or I/O failure yields a captured Error.
func (p *LockedFileDataPersister[T]) Load(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return LoadResult[T]{}, err
	}

	defer p.gate.Release(1)

	releaser, err := p.lock.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LoadResult[T]{}, ctxErr
		}

		return Errored[T](err, correlationTag, p.equal), nil
	}

	defer releaser.Release()

	return p.currentLocked(ctx, correlationTag)
}

// Update performs an atomic read-modify-write under the in-process gate and
// the FileLock. See the package doc and spec for the full commit protocol.
func (p *LockedFileDataPersister[T]) Update(
	ctx context.Context, correlationTag any, callback Callback[T],
) (UpdateResult[T], error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return UpdateResult[T]{}, err
	}

	defer p.gate.Release(1)

	releaser, err := p.lock.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return UpdateResult[T]{}, ctxErr
		}

		return noUpdate(Errored[T](err, correlationTag, p.equal)), nil
	}

	defer releaser.Release()

	read, err := p.currentLocked(ctx, correlationTag)
	if err != nil {
		return UpdateResult[T]{}, err
	}

	tc := newTransactionContext(read, correlationTag, p.equal)

	cbErr := callback(ctx, tc)
	if cbErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return UpdateResult[T]{}, ctxErr
		}

		return UpdateResult[T]{
			IsUpdated: false,
			Previous:  read,
			Updated:   Errored[T](fmt.Errorf("persist: callback: %w: %w", ErrCallback, cbErr), correlationTag, p.equal),
		}, nil
	}

	if !tc.IsCommitted() {
		return noUpdate(read), nil
	}

	p.invalidateCacheLocked()

	if tc.IsRemoved() {
		return p.commitRemovalLocked(tc, read, correlationTag), nil
	}

	value, _ := tc.CommittedValue()

	return p.commitValueLocked(ctx, read, value, correlationTag)
}

// currentLocked reads the current value, preferring the exclusive-mode
// cache. Must be called while holding both the gate and the FileLock.
func (p *LockedFileDataPersister[T]) currentLocked(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	if p.settings.ExclusiveMode && p.cached != nil {
		return p.cached.withCorrelationTag(correlationTag), nil
	}

	exists, err := p.fs.Exists(p.paths.Committed)
	if err != nil {
		return Errored[T](fmt.Errorf("persist: stat %q: %w: %w", p.paths.Committed, ErrIO, err), correlationTag, p.equal), nil
	}

	if !exists {
		return Absent[T](correlationTag, p.equal), nil
	}

	if p.settings.ExclusiveMode {
		return p.readExclusiveLocked(ctx, correlationTag)
	}

	return p.readSharedLocked(ctx, correlationTag)
}

// readExclusiveLocked opens COMMITTED read-write and retains the handle,
// caching the deserialized result for subsequent calls until invalidated.
func (p *LockedFileDataPersister[T]) readExclusiveLocked(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	file, err := p.fs.OpenFile(p.paths.Committed, os.O_RDWR, defaultFilePerm)
	if err != nil {
		if os.IsNotExist(err) {
			return Absent[T](correlationTag, p.equal), nil
		}

		return Errored[T](fmt.Errorf("persist: open %q: %w: %w", p.paths.Committed, ErrIO, err), correlationTag, p.equal), nil
	}

	value, readErr := p.read(ctx, nonClosing(file))
	if readErr != nil {
		_ = file.Close()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return LoadResult[T]{}, ctxErr
		}

		return Errored[T](fmt.Errorf("persist: deserialize %q: %w: %w", p.paths.Committed, ErrDeserialize, readErr), correlationTag, p.equal), nil
	}

	result := Present(value, correlationTag, p.equal)
	p.cachedHandle = file
	cached := result
	p.cached = &cached

	return result, nil
}

// readSharedLocked opens COMMITTED read-only and closes it once deserialized.
func (p *LockedFileDataPersister[T]) readSharedLocked(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	file, err := p.fs.Open(p.paths.Committed)
	if err != nil {
		if os.IsNotExist(err) {
			return Absent[T](correlationTag, p.equal), nil
		}

		return Errored[T](fmt.Errorf("persist: open %q: %w: %w", p.paths.Committed, ErrIO, err), correlationTag, p.equal), nil
	}

	defer func() { _ = file.Close() }()

	value, readErr := p.read(ctx, file)
	if readErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LoadResult[T]{}, ctxErr
		}

		return Errored[T](fmt.Errorf("persist: deserialize %q: %w: %w", p.paths.Committed, ErrDeserialize, readErr), correlationTag, p.equal), nil
	}

	return Present(value, correlationTag, p.equal), nil
}

// invalidateCacheLocked closes and forgets the retained exclusive-mode
// handle and cached result. Called before any write.
func (p *LockedFileDataPersister[T]) invalidateCacheLocked() {
	if p.cachedHandle != nil {
		_ = p.cachedHandle.Close()
		p.cachedHandle = nil
	}

	p.cached = nil
}

func (p *LockedFileDataPersister[T]) commitRemovalLocked(
	tc *TransactionContext[T], read LoadResult[T], correlationTag any,
) UpdateResult[T] {
	exists, err := p.fs.Exists(p.paths.Committed)
	if err != nil {
		return UpdateResult[T]{
			IsUpdated: false,
			Previous:  read,
			Updated:   Errored[T](fmt.Errorf("persist: stat %q: %w: %w", p.paths.Committed, ErrIO, err), correlationTag, p.equal),
		}
	}

	if !exists {
		// Nothing on disk to remove: the removal is idempotent, not an update.
		tc.Reset()

		return noUpdate(read)
	}

	if removeErr := p.fs.Remove(p.paths.Committed); removeErr != nil {
		return UpdateResult[T]{
			IsUpdated: false,
			Previous:  read,
			Updated: Errored[T](
				fmt.Errorf("persist: remove %q: %w: %w", p.paths.Committed, ErrIO, removeErr), correlationTag, p.equal,
			),
		}
	}

	return UpdateResult[T]{IsUpdated: true, Previous: read, Updated: Absent[T](correlationTag, p.equal)}
}

func (p *LockedFileDataPersister[T]) commitValueLocked(
	ctx context.Context, read LoadResult[T], value T, correlationTag any,
) (UpdateResult[T], error) {
	if err := p.stageNewLocked(ctx, value); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return UpdateResult[T]{}, ctxErr
		}

		return UpdateResult[T]{
			IsUpdated: false,
			Previous:  read,
			Updated:   Errored[T](err, correlationTag, p.equal),
		}, nil
	}

	// The pivot itself is never cancelled: once NEW is staged, the commit
	// runs to completion or leaves a crash-recoverable trail. See Recover.
	if err := p.pivot(); err != nil {
		return UpdateResult[T]{
			IsUpdated: false,
			Previous:  read,
			Updated:   Errored[T](err, correlationTag, p.equal),
		}, nil
	}

	p.reestablishCacheLocked(value, correlationTag)

	return UpdateResult[T]{IsUpdated: true, Previous: read, Updated: Present(value, correlationTag, p.equal)}, nil
}

// stageNewLocked writes value to NEW, truncating any leftover, and syncs it
// before returning. On any failure NEW is removed so the next recovery has
// nothing to roll back.
func (p *LockedFileDataPersister[T]) stageNewLocked(ctx context.Context, value T) error {
	file, err := p.fs.OpenFile(p.paths.New, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return fmt.Errorf("persist: create %q: %w: %w", p.paths.New, ErrIO, err)
	}

	writeErr := p.write(ctx, value, file)
	if writeErr == nil {
		writeErr = file.Sync()
	}

	closeErr := file.Close()

	if writeErr != nil {
		_ = p.fs.Remove(p.paths.New)

		return fmt.Errorf("persist: serialize %q: %w: %w", p.paths.New, ErrSerialize, writeErr)
	}

	if closeErr != nil {
		_ = p.fs.Remove(p.paths.New)

		return fmt.Errorf("persist: close %q: %w: %w", p.paths.New, ErrIO, closeErr)
	}

	return nil
}

// pivot executes the two-rename commit sequence as a single, deliberately
// non-cancellable block. The first rename is the linearization point: once
// OLD exists, recovery will finish the transition forward even on crash.
func (p *LockedFileDataPersister[T]) pivot() error {
	exists, err := p.fs.Exists(p.paths.Committed)
	if err != nil {
		return fmt.Errorf("persist: stat %q: %w: %w", p.paths.Committed, ErrIO, err)
	}

	if !exists {
		if err := p.fs.Rename(p.paths.New, p.paths.Committed); err != nil {
			return fmt.Errorf("persist: rename new to committed: %w: %w", ErrIO, err)
		}

		return nil
	}

	if err := p.fs.Rename(p.paths.Committed, p.paths.Old); err != nil {
		return fmt.Errorf("persist: rename committed to old: %w: %w", ErrIO, err)
	}

	if err := p.fs.Rename(p.paths.New, p.paths.Committed); err != nil {
		return fmt.Errorf("persist: rename new to committed: %w: %w", ErrIO, err)
	}

	if err := p.fs.Remove(p.paths.Old); err != nil {
		return fmt.Errorf("persist: remove old: %w: %w", ErrIO, err)
	}

	return nil
}

// reestablishCacheLocked reopens the new COMMITTED and caches the updated
// result, mirroring readExclusiveLocked. A failure here is logged, not
// fatal: the commit already succeeded, and the next operation will simply
// re-read from disk.
func (p *LockedFileDataPersister[T]) reestablishCacheLocked(value T, correlationTag any) {
	if !p.settings.ExclusiveMode {
		return
	}

	file, err := p.fs.OpenFile(p.paths.Committed, os.O_RDWR, defaultFilePerm)
	if err != nil {
		p.settings.Logger.Warn().Err(err).Str("path", p.paths.Committed).
			Msg("persist: failed to reopen committed file for exclusive-mode cache")

		return
	}

	p.cachedHandle = file
	cached := Present(value, correlationTag, p.equal)
	p.cached = &cached
}

// Close releases the retained exclusive-mode file handle, if any. Safe to
// call even when exclusive mode is off or no handle is currently held.
func (p *LockedFileDataPersister[T]) Close() error {
	if err := p.gate.Acquire(context.Background(), 1); err != nil {
		return err
	}

	defer p.gate.Release(1)

	p.invalidateCacheLocked()

	return nil
}
