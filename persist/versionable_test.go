package persist_test

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/persist"
	"github.com/calvinalkan/persist/internal/fsx"
)

type versionedDoc struct {
	Version int
	Payload string
}

func (d versionedDoc) FormatVersion() int { return d.Version }

func readVersionedDoc(_ context.Context, r persist.Reader) (versionedDoc, error) {
	var lenBuf [4]byte

	if _, err := r.Read(lenBuf[:]); err != nil {
		return versionedDoc{}, err
	}

	version := int(binary.LittleEndian.Uint32(lenBuf[:]))

	payload := make([]byte, 0, 64)
	buf := make([]byte, 64)

	for {
		n, err := r.Read(buf)
		payload = append(payload, buf[:n]...)

		if err != nil {
			break
		}
	}

	return versionedDoc{Version: version, Payload: string(payload)}, nil
}

func writeVersionedDoc(_ context.Context, v versionedDoc, w persist.Writer) error {
	var lenBuf [4]byte

	binary.LittleEndian.PutUint32(lenBuf[:], uint32(v.Version)) //nolint:gosec

	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}

	_, err := w.Write([]byte(v.Payload))

	return err
}

func newReferenceReader(t *testing.T, value versionedDoc) *persist.FileDataReader[versionedDoc] {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "reference")

	fs := fsx.NewReal()
	writer := persist.NewLockedFileDataPersister[versionedDoc](path, readVersionedDoc, writeVersionedDoc, persist.WithFS[versionedDoc](fs))

	_, err := writer.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[versionedDoc]) error {
		tc.Commit(value)

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return persist.NewFileDataReader[versionedDoc](fs, path, readVersionedDoc, persist.Immutable[versionedDoc]())
}

func TestVersionable_PrefersReferenceWhenLocalAbsent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	local := persist.NewLockedFileDataPersister[versionedDoc](filepath.Join(dir, "local"), readVersionedDoc, writeVersionedDoc)
	reference := newReferenceReader(t, versionedDoc{Version: 2, Payload: "ref"})

	v := persist.NewVersionableDataPersister[versionedDoc](local, reference)

	result, err := v.Load(context.Background(), nil)
	require.NoError(t, err)

	value, ok := result.Value()
	require.True(t, ok)
	require.Equal(t, versionedDoc{Version: 2, Payload: "ref"}, value)
}

func TestVersionable_PrefersReferenceOnVersionMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	localPath := filepath.Join(dir, "local")
	local := persist.NewLockedFileDataPersister[versionedDoc](localPath, readVersionedDoc, writeVersionedDoc)

	commitVersioned(t, local, versionedDoc{Version: 1, Payload: "old"})

	reference := newReferenceReader(t, versionedDoc{Version: 2, Payload: "ref"})
	v := persist.NewVersionableDataPersister[versionedDoc](local, reference)

	result, err := v.Load(context.Background(), nil)
	require.NoError(t, err)

	value, ok := result.Value()
	require.True(t, ok)
	require.Equal(t, versionedDoc{Version: 2, Payload: "ref"}, value)
}

func TestVersionable_UsesLocalWhenVersionsMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	localPath := filepath.Join(dir, "local")
	local := persist.NewLockedFileDataPersister[versionedDoc](localPath, readVersionedDoc, writeVersionedDoc)

	commitVersioned(t, local, versionedDoc{Version: 2, Payload: "local"})

	reference := newReferenceReader(t, versionedDoc{Version: 2, Payload: "ref"})
	v := persist.NewVersionableDataPersister[versionedDoc](local, reference)

	result, err := v.Load(context.Background(), nil)
	require.NoError(t, err)

	value, ok := result.Value()
	require.True(t, ok)
	require.Equal(t, versionedDoc{Version: 2, Payload: "local"}, value)
}

func TestVersionable_UpdateMigratesReferenceShapeLocally(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	localPath := filepath.Join(dir, "local")
	local := persist.NewLockedFileDataPersister[versionedDoc](localPath, readVersionedDoc, writeVersionedDoc)

	commitVersioned(t, local, versionedDoc{Version: 1, Payload: "old"})

	reference := newReferenceReader(t, versionedDoc{Version: 2, Payload: "ref"})
	v := persist.NewVersionableDataPersister[versionedDoc](local, reference)

	result, err := v.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[versionedDoc]) error {
		read, _ := tc.Read().Value()
		tc.Commit(versionedDoc{Version: read.Version, Payload: "migrated"})

		return nil
	})
	require.NoError(t, err)
	require.True(t, result.IsUpdated)

	loaded, err := local.Load(context.Background(), nil)
	require.NoError(t, err)

	value, ok := loaded.Value()
	require.True(t, ok)
	require.Equal(t, versionedDoc{Version: 2, Payload: "migrated"}, value)
}

func TestVersionable_ReferenceCacheSharedAcrossInstances(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := fsx.NewReal()
	refPath := filepath.Join(dir, "reference")

	writer := persist.NewLockedFileDataPersister[versionedDoc](refPath, readVersionedDoc, writeVersionedDoc, persist.WithFS[versionedDoc](fs))
	commitVersioned(t, writer, versionedDoc{Version: 3, Payload: "ref"})
	require.NoError(t, writer.Close())

	cache, err := persist.NewReferenceCache[versionedDoc](4)
	require.NoError(t, err)

	reference := persist.NewFileDataReader[versionedDoc](fs, refPath, readVersionedDoc, persist.Immutable[versionedDoc]())

	local1 := persist.NewLockedFileDataPersister[versionedDoc](filepath.Join(dir, "local1"), readVersionedDoc, writeVersionedDoc)
	local2 := persist.NewLockedFileDataPersister[versionedDoc](filepath.Join(dir, "local2"), readVersionedDoc, writeVersionedDoc)

	v1 := persist.NewVersionableDataPersister[versionedDoc](local1, reference, persist.WithReferenceCache[versionedDoc](cache, refPath))
	v2 := persist.NewVersionableDataPersister[versionedDoc](local2, reference, persist.WithReferenceCache[versionedDoc](cache, refPath))

	r1, err := v1.Load(context.Background(), nil)
	require.NoError(t, err)

	r2, err := v2.Load(context.Background(), nil)
	require.NoError(t, err)

	v1Value, _ := r1.Value()
	v2Value, _ := r2.Value()
	require.Equal(t, v1Value, v2Value)
}

func commitVersioned(t *testing.T, p *persist.LockedFileDataPersister[versionedDoc], value versionedDoc) {
	t.Helper()

	_, err := p.Update(context.Background(), nil, func(_ context.Context, tc *persist.TransactionContext[versionedDoc]) error {
		tc.Commit(value)

		return nil
	})
	require.NoError(t, err)
}
