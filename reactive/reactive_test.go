package reactive_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/persist"
	"github.com/calvinalkan/persist/memory"
	"github.com/calvinalkan/persist/reactive"
)

func TestCommitBroadcaster_PublishesOnCommit(t *testing.T) {
	t.Parallel()

	b := reactive.New[int](memory.New[int]())

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	_, err := b.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[int]) error {
		tc.Commit(42)

		return nil
	})
	require.NoError(t, err)

	select {
	case result := <-ch:
		value, ok := result.Updated.Value()
		require.True(t, ok)
		require.Equal(t, 42, value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestCommitBroadcaster_NoOpUpdateDoesNotPublish(t *testing.T) {
	t.Parallel()

	b := reactive.New[int](memory.New(memory.WithInitial(42)))

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	_, err := b.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[int]) error {
		tc.Commit(42) // same value, elided

		return nil
	})
	require.NoError(t, err)

	select {
	case result := <-ch:
		t.Fatalf("unexpected broadcast: %+v", result)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCommitBroadcaster_OrderingAcrossMultipleCommits(t *testing.T) {
	t.Parallel()

	b := reactive.New[int](memory.New[int](), reactive.WithBufferSize[int](8))

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for i := 1; i <= 5; i++ {
		v := i

		_, err := b.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[int]) error {
			tc.Commit(v)

			return nil
		})
		require.NoError(t, err)
	}

	for i := 1; i <= 5; i++ {
		select {
		case result := <-ch:
			value, ok := result.Updated.Value()
			require.True(t, ok)
			require.Equal(t, i, value)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for commit %d", i)
		}
	}
}

func TestCommitBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := reactive.New[int](memory.New[int]())

	ch, unsubscribe := b.Subscribe()
	unsubscribe()

	_, open := <-ch
	require.False(t, open)
}
