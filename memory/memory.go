// Package memory provides a non-durable [persist.DataPersister] stub for
// tests and demos that want the transactional contract without real file
// I/O.
package memory

import (
	"context"
	"sync"

	"github.com/calvinalkan/persist"
)

// InMemoryDataPersister implements [persist.DataPersister] over a single
// in-process value guarded by a mutex. It has no lock file, no recovery, and
// no durability across process restarts — it exists so callers and tests
// can exercise the decorator chain without touching disk.
type InMemoryDataPersister[T any] struct {
	mu    sync.Mutex
	value persist.LoadResult[T]
	equal persist.EqualFunc[T]
}

// Option configures an [InMemoryDataPersister] at construction time.
type Option[T any] func(*InMemoryDataPersister[T])

// WithEqual overrides the default equality comparer.
func WithEqual[T any](equal persist.EqualFunc[T]) Option[T] {
	return func(p *InMemoryDataPersister[T]) { p.equal = equal }
}

// WithInitial seeds the persister with a present value, as if it had
// already been committed.
func WithInitial[T any](value T) Option[T] {
	return func(p *InMemoryDataPersister[T]) {
		p.value = persist.Present(value, nil, p.equal)
	}
}

// New creates an InMemoryDataPersister starting out absent, unless
// [WithInitial] is supplied.
func New[T any](opts ...Option[T]) *InMemoryDataPersister[T] {
	p := &InMemoryDataPersister[T]{}

	p.value = persist.Absent[T](nil, nil)

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Compile-time interface check.
var _ persist.DataPersister[int] = (*InMemoryDataPersister[int])(nil)

// Load returns the current in-memory value.
func (p *InMemoryDataPersister[T]) Load(ctx context.Context, correlationTag any) (persist.LoadResult[T], error) {
	if err := ctx.Err(); err != nil {
		return persist.LoadResult[T]{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.withTag(p.value, correlationTag), nil
}

// Update runs callback against the current value and applies whatever it
// commits, under the same write-elision rules as [persist.LockedFileDataPersister].
func (p *InMemoryDataPersister[T]) Update(
	ctx context.Context, correlationTag any, callback persist.Callback[T],
) (persist.UpdateResult[T], error) {
	if err := ctx.Err(); err != nil {
		return persist.UpdateResult[T]{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	read := p.withTag(p.value, correlationTag)
	tc := persist.NewTransactionContext(read, correlationTag, p.equal)

	if err := callback(ctx, tc); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return persist.UpdateResult[T]{}, ctxErr
		}

		updated := persist.Errored[T](err, correlationTag, p.equal)

		return persist.UpdateResult[T]{IsUpdated: false, Previous: read, Updated: updated}, nil
	}

	if !tc.IsCommitted() {
		return persist.UpdateResult[T]{IsUpdated: false, Previous: read, Updated: read}, nil
	}

	if tc.IsRemoved() {
		p.value = persist.Absent[T](correlationTag, p.equal)

		return persist.UpdateResult[T]{IsUpdated: true, Previous: read, Updated: p.value}, nil
	}

	value, _ := tc.CommittedValue()
	p.value = persist.Present(value, correlationTag, p.equal)

	return persist.UpdateResult[T]{IsUpdated: true, Previous: read, Updated: p.value}, nil
}

func (p *InMemoryDataPersister[T]) withTag(result persist.LoadResult[T], tag any) persist.LoadResult[T] {
	if value, ok := result.Value(); ok {
		return persist.Present(value, tag, p.equal)
	}

	if result.IsError() {
		return persist.Errored[T](result.Err(), tag, p.equal)
	}

	return persist.Absent[T](tag, p.equal)
}
