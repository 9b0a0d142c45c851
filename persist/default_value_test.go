package persist_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/persist"
)

func newDefaultValuePersister(
	t *testing.T, options persist.DefaultValueOptions, customDefault int,
) (*persist.DefaultValueDataPersister[int], *persist.LockedFileDataPersister[int]) {
	t.Helper()

	dir := t.TempDir()
	inner := newIntPersister(t, filepath.Join(dir, "value"))
	decorated := persist.NewDefaultValueDataPersister[int](inner, customDefault, options)

	return decorated, inner
}

func TestDefaultValue_ReadEmptyToCustomDefault(t *testing.T) {
	t.Parallel()

	d, inner := newDefaultValuePersister(t, persist.ReadEmptyToCustomDefault, 99)

	result, err := d.Load(context.Background(), nil)
	require.NoError(t, err)

	value, ok := result.Value()
	require.True(t, ok)
	require.Equal(t, 99, value)

	innerResult, err := inner.Load(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, innerResult.IsAbsent(), "underlying file must still be absent")
}

func TestDefaultValue_ReadDefaultToCustomDefault(t *testing.T) {
	t.Parallel()

	d, inner := newDefaultValuePersister(t, persist.ReadDefaultToCustomDefault, 99)

	commit(t, inner, 0)

	result, err := d.Load(context.Background(), nil)
	require.NoError(t, err)

	value, ok := result.Value()
	require.True(t, ok)
	require.Equal(t, 99, value)
}

func TestDefaultValue_ReadDefaultToCustomDefault_NonZeroUnaffected(t *testing.T) {
	t.Parallel()

	d, inner := newDefaultValuePersister(t, persist.ReadDefaultToCustomDefault, 99)

	commit(t, inner, 7)

	result, err := d.Load(context.Background(), nil)
	require.NoError(t, err)

	value, ok := result.Value()
	require.True(t, ok)
	require.Equal(t, 7, value)
}

func TestDefaultValue_WriteDefaultToEmpty(t *testing.T) {
	t.Parallel()

	d, inner := newDefaultValuePersister(t, persist.WriteDefaultToEmpty, 99)

	commit(t, inner, 7)

	result, err := d.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[int]) error {
		tc.Commit(0)

		return nil
	})
	require.NoError(t, err)
	require.True(t, result.IsUpdated)
	require.True(t, result.Updated.IsAbsent())

	innerResult, err := inner.Load(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, innerResult.IsAbsent(), "write-default-to-empty must remove the underlying file")
}

func TestDefaultValue_WriteCustomDefaultToEmpty(t *testing.T) {
	t.Parallel()

	d, inner := newDefaultValuePersister(t, persist.WriteCustomDefaultToEmpty, 99)

	commit(t, inner, 7)

	result, err := d.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[int]) error {
		tc.Commit(99)

		return nil
	})
	require.NoError(t, err)
	require.True(t, result.IsUpdated)
	require.True(t, result.Updated.IsAbsent())

	innerResult, err := inner.Load(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, innerResult.IsAbsent())
}

func TestDefaultValue_CommitSameMappedValueIsNoop(t *testing.T) {
	t.Parallel()

	d, inner := newDefaultValuePersister(t, persist.ReadEmptyToCustomDefault, 99)

	result, err := d.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[int]) error {
		tc.Commit(99) // equals the mapped read, must elide

		return nil
	})
	require.NoError(t, err)
	require.False(t, result.IsUpdated)

	innerResult, err := inner.Load(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, innerResult.IsAbsent())
}

func TestDefaultValue_UpdateRoundTripWithoutOptions(t *testing.T) {
	t.Parallel()

	d, _ := newDefaultValuePersister(t, 0, 99)

	result, err := d.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[int]) error {
		tc.Commit(5)

		return nil
	})
	require.NoError(t, err)
	require.True(t, result.IsUpdated)

	value, ok := result.Updated.Value()
	require.True(t, ok)
	require.Equal(t, 5, value)
}
