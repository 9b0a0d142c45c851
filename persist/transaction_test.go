package persist_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/persist"
)

func TestTransactionContext_CommitSameValueIsNoop(t *testing.T) {
	t.Parallel()

	read := persist.Present(42, nil, nil)
	tc := persist.NewTransactionContextForTest(read, nil, nil)

	tc.Commit(42)

	require.False(t, tc.IsCommitted())
}

func TestTransactionContext_CommitDifferentValueCommits(t *testing.T) {
	t.Parallel()

	read := persist.Present(42, nil, nil)
	tc := persist.NewTransactionContextForTest(read, nil, nil)

	tc.Commit(43)

	require.True(t, tc.IsCommitted())

	value, ok := tc.CommittedValue()
	require.True(t, ok)
	require.Equal(t, 43, value)
}

func TestTransactionContext_CommitOnAbsentAlwaysCommits(t *testing.T) {
	t.Parallel()

	read := persist.Absent[int](nil, nil)
	tc := persist.NewTransactionContextForTest(read, nil, nil)

	tc.Commit(0)

	require.True(t, tc.IsCommitted())
}

func TestTransactionContext_RemoveAndCommitOnAbsentIsNoop(t *testing.T) {
	t.Parallel()

	read := persist.Absent[int](nil, nil)
	tc := persist.NewTransactionContextForTest(read, nil, nil)

	tc.RemoveAndCommit()

	require.False(t, tc.IsCommitted())
	require.True(t, tc.IsRemoved())
}

func TestTransactionContext_RemoveAndCommitOnPresentCommits(t *testing.T) {
	t.Parallel()

	read := persist.Present(42, nil, nil)
	tc := persist.NewTransactionContextForTest(read, nil, nil)

	tc.RemoveAndCommit()

	require.True(t, tc.IsCommitted())
	require.True(t, tc.IsRemoved())
}

func TestTransactionContext_Reset(t *testing.T) {
	t.Parallel()

	read := persist.Present(42, nil, nil)
	tc := persist.NewTransactionContextForTest(read, nil, nil)

	tc.Commit(43)
	tc.Reset()

	require.False(t, tc.IsCommitted())
	require.False(t, tc.IsRemoved())
}

func TestTransactionContext_CommitOption(t *testing.T) {
	t.Parallel()

	read := persist.Present(42, nil, nil)
	tc := persist.NewTransactionContextForTest(read, nil, nil)

	v := 99
	tc.CommitOption(&v)
	require.True(t, tc.IsCommitted())
	require.False(t, tc.IsRemoved())

	tc2 := persist.NewTransactionContextForTest(read, nil, nil)
	tc2.CommitOption(nil)
	require.True(t, tc2.IsRemoved())
}
