package persist

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Versioned is the constraint a value type must satisfy to be usable with
// [VersionableDataPersister]: it must expose the format version its current
// shape was serialized under.
type Versioned interface {
	FormatVersion() int
}

// ReferenceReader is the read-only source a [VersionableDataPersister]
// compares its local persister against. [FileDataReader] satisfies this.
type ReferenceReader[T any] interface {
	Load(ctx context.Context, correlationTag any) (LoadResult[T], error)
}

// VersionableDataPersister compares a writable inner persister's value
// against an immutable reference value and prefers the reference whenever
// its format version differs from (or the local value is absent relative
// to) what's stored locally. This is how a bumped reference schema gets
// migrated into local storage on the next write.
type VersionableDataPersister[T Versioned] struct {
	local     DataPersister[T]
	reference ReferenceReader[T]
	equal     EqualFunc[T]

	refCache    *lru.Cache[string, LoadResult[T]]
	refCacheKey string
}

// VersionableOption configures a [VersionableDataPersister] at construction.
type VersionableOption[T Versioned] func(*VersionableDataPersister[T])

// WithVersionableEqual overrides the default equality comparer used when
// mirroring a commit from the reference-seeded transaction onto the local
// one.
func WithVersionableEqual[T Versioned](equal EqualFunc[T]) VersionableOption[T] {
	return func(v *VersionableDataPersister[T]) { v.equal = equal }
}

// WithReferenceCache shares a memoized reference load across multiple
// VersionableDataPersister instances that read the same reference source,
// keyed by key (typically the reference's path or identity). Without this
// option each instance relies solely on whatever memoization its
// ReferenceReader does on its own (an [Immutable] [FileDataReader] already
// memoizes a single instance's load; this option extends that across
// instances sharing one process).
func WithReferenceCache[T Versioned](cache *lru.Cache[string, LoadResult[T]], key string) VersionableOption[T] {
	return func(v *VersionableDataPersister[T]) {
		v.refCache = cache
		v.refCacheKey = key
	}
}

// NewReferenceCache builds a bounded, shareable cache suitable for
// [WithReferenceCache]. size bounds the number of distinct reference keys
// held in memory at once.
func NewReferenceCache[T any](size int) (*lru.Cache[string, LoadResult[T]], error) {
	cache, err := lru.New[string, LoadResult[T]](size)
	if err != nil {
		return nil, fmt.Errorf("persist: new reference cache: %w", err)
	}

	return cache, nil
}

// NewVersionableDataPersister wraps local, consulting reference on every
// Load and Update to decide whether the reference value should take
// precedence.
func NewVersionableDataPersister[T Versioned](
	local DataPersister[T], reference ReferenceReader[T], opts ...VersionableOption[T],
) *VersionableDataPersister[T] {
	v := &VersionableDataPersister[T]{local: local, reference: reference}

	for _, opt := range opts {
		opt(v)
	}

	if v.equal == nil {
		v.equal = defaultEqual[T]
	}

	return v
}

type versionableProbe int

func (versionableProbe) FormatVersion() int { return 0 }

// Compile-time interface check.
var _ DataPersister[versionableProbe] = (*VersionableDataPersister[versionableProbe])(nil)

// Load reads both the reference and the local value and returns whichever
// ShouldUseReference selects.
func (v *VersionableDataPersister[T]) Load(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	ref, err := v.loadReference(ctx, correlationTag)
	if err != nil {
		return LoadResult[T]{}, err
	}

	local, err := v.local.Load(ctx, correlationTag)
	if err != nil {
		return LoadResult[T]{}, err
	}

	if shouldUseReference(ref, local) {
		return ref.withCorrelationTag(correlationTag), nil
	}

	return local, nil
}

// Update delegates to the inner local persister. If the reference should be
// preferred over what's currently stored locally, the caller's callback is
// given a TransactionContext seeded with the reference value instead of the
// local one; whatever it commits or removes is mirrored onto the real local
// transaction, so the migrated shape lands atomically in the same pivot.
func (v *VersionableDataPersister[T]) Update(
	ctx context.Context, correlationTag any, callback Callback[T],
) (UpdateResult[T], error) {
	ref, err := v.loadReference(ctx, correlationTag)
	if err != nil {
		return UpdateResult[T]{}, err
	}

	return v.local.Update(ctx, correlationTag, func(ctx context.Context, localTC *TransactionContext[T]) error {
		if !shouldUseReference(ref, localTC.Read()) {
			return callback(ctx, localTC)
		}

		refTC := newTransactionContext(ref, localTC.CorrelationTag(), v.equal)

		if err := callback(ctx, refTC); err != nil {
			return err
		}

		if refTC.IsRemoved() {
			localTC.RemoveAndCommit()

			return nil
		}

		if value, ok := refTC.CommittedValue(); ok {
			localTC.Commit(value)
		}

		return nil
	})
}

// loadReference fetches the reference value, preferring the shared cache
// (if configured) over a fresh ReferenceReader.Load.
func (v *VersionableDataPersister[T]) loadReference(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	if v.refCache != nil {
		if cached, ok := v.refCache.Get(v.refCacheKey); ok {
			return cached.withCorrelationTag(correlationTag), nil
		}
	}

	result, err := v.reference.Load(ctx, correlationTag)
	if err != nil {
		return LoadResult[T]{}, err
	}

	if v.refCache != nil && !result.IsError() {
		v.refCache.Add(v.refCacheKey, result)
	}

	return result, nil
}

// shouldUseReference reports whether ref should be preferred over local:
// true iff ref is Present and either local is not Present (Absent or
// Error — an unreadable local value is no more trustworthy than a missing
// one) or local's format version differs from ref's.
func shouldUseReference[T Versioned](ref, local LoadResult[T]) bool {
	if !ref.IsPresent() {
		return false
	}

	if !local.IsPresent() {
		return true
	}

	refValue, _ := ref.Value()
	localValue, _ := local.Value()

	return localValue.FormatVersion() != refValue.FormatVersion()
}
