// Package reactive provides a thin wrapper that turns a
// [persist.DataPersister]'s successful commits into an observable event
// stream, matching the ordering guarantee spec.md's concurrency model
// requires of observers: updates arrive in commit order, published while
// the broadcaster still holds the lock that serializes its Update calls.
package reactive

import (
	"context"
	"sync"

	"github.com/calvinalkan/persist"
)

// CommitBroadcaster wraps a [persist.DataPersister], publishing every
// commit it observes through Update to zero or more subscriber channels, in
// the exact order Update returns them. A subscriber that is not keeping up
// never blocks a commit: a full channel drops the oldest pending
// notification for that subscriber rather than stalling Update.
type CommitBroadcaster[T any] struct {
	inner persist.DataPersister[T]

	// updateMu serializes Update calls so that each commit is published
	// before the next Update through this broadcaster can commit.
	updateMu sync.Mutex

	mu          sync.Mutex
	subscribers map[int]chan persist.UpdateResult[T]
	nextID      int
	bufferSize  int
}

// Option configures a [CommitBroadcaster] at construction time.
type Option[T any] func(*CommitBroadcaster[T])

// WithBufferSize sets the per-subscriber channel buffer. Default 1.
func WithBufferSize[T any](size int) Option[T] {
	return func(b *CommitBroadcaster[T]) { b.bufferSize = size }
}

// New wraps inner, broadcasting every successful Update commit.
func New[T any](inner persist.DataPersister[T], opts ...Option[T]) *CommitBroadcaster[T] {
	b := &CommitBroadcaster[T]{
		inner:       inner,
		subscribers: make(map[int]chan persist.UpdateResult[T]),
		bufferSize:  1,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Compile-time interface check.
var _ persist.DataPersister[int] = (*CommitBroadcaster[int])(nil)

// Load delegates directly to the inner persister; reads are not broadcast.
func (b *CommitBroadcaster[T]) Load(ctx context.Context, correlationTag any) (persist.LoadResult[T], error) {
	return b.inner.Load(ctx, correlationTag)
}

// Update delegates to the inner persister and, if the commit actually
// changed something, publishes the UpdateResult to every current
// subscriber before returning. Update calls through one broadcaster are
// serialized, and publication happens on Update's own goroutine before that
// serialization is released, so subscribers never observe commits made
// through this broadcaster out of order.
func (b *CommitBroadcaster[T]) Update(
	ctx context.Context, correlationTag any, callback persist.Callback[T],
) (persist.UpdateResult[T], error) {
	b.updateMu.Lock()
	defer b.updateMu.Unlock()

	result, err := b.inner.Update(ctx, correlationTag, callback)
	if err != nil {
		return persist.UpdateResult[T]{}, err
	}

	if result.IsUpdated {
		b.publish(result)
	}

	return result, nil
}

// Subscribe registers a new subscriber and returns its channel together
// with an unsubscribe function. The channel is closed by unsubscribe;
// callers must not range over it after calling unsubscribe from another
// goroutine without first draining it.
func (b *CommitBroadcaster[T]) Subscribe() (<-chan persist.UpdateResult[T], func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan persist.UpdateResult[T], b.bufferSize)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}

	return ch, unsubscribe
}

// publish fans result out to every subscriber without blocking: a
// subscriber whose buffer is full has its oldest pending notification
// discarded to make room, rather than stalling the commit path.
func (b *CommitBroadcaster[T]) publish(result persist.UpdateResult[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- result:
		default:
			select {
			case <-ch:
			default:
			}

			select {
			case ch <- result:
			default:
			}
		}
	}
}
