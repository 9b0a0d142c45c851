package persist_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/persist"
)

// TestOrdering_AcrossInstances exercises the ordering guarantee of spec §8
// property 6: each instance's Update sees a Previous equal to the prior
// instance's Updated, across separate LockedFileDataPersister instances
// sharing the same file (standing in for separate processes).
func TestOrdering_AcrossInstances(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "value")

	var lastUpdated persist.LoadResult[int]

	for i := range 5 {
		p := newIntPersister(t, path)

		result := commit(t, p, i)

		if i > 0 {
			require.True(t, result.Previous.Equal(lastUpdated))
		}

		lastUpdated = result.Updated

		require.NoError(t, p.Close())
	}

	final := newIntPersister(t, path)

	loaded, err := final.Load(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, loaded.Equal(lastUpdated))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "value")

	for _, v := range []int{0, 1, -1, 1 << 20, -(1 << 20)} {
		p := newIntPersister(t, path)

		commit(t, p, v)

		loaded, err := p.Load(context.Background(), nil)
		require.NoError(t, err)

		value, ok := loaded.Value()
		require.True(t, ok)
		require.Equal(t, v, value)

		require.NoError(t, p.Close())
	}
}
