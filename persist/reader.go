package persist

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/calvinalkan/persist/internal/fsx"
)

// FileDataReader is a read-only, shared-read loader from a single file. When
// configured as immutable, the first successful load is cached in memory
// and returned on every subsequent call without touching disk again — this
// is what backs a [VersionableDataPersister]'s reference reader.
type FileDataReader[T any] struct {
	fs    fsx.FS
	path  string
	read  ReadFunc[T]
	equal EqualFunc[T]

	immutable bool

	mu     sync.Mutex
	cached *LoadResult[T]
}

// ReaderOption configures a [FileDataReader].
type ReaderOption[T any] func(*FileDataReader[T])

// WithReaderEqual overrides the default equality comparer.
func WithReaderEqual[T any](equal EqualFunc[T]) ReaderOption[T] {
	return func(r *FileDataReader[T]) { r.equal = equal }
}

// Immutable declares the underlying file's contents constant for the
// lifetime of this reader: the first successful load is memoized and never
// re-read from disk.
func Immutable[T any]() ReaderOption[T] {
	return func(r *FileDataReader[T]) { r.immutable = true }
}

// NewFileDataReader creates a read-only loader for path using fs.
func NewFileDataReader[T any](fs fsx.FS, path string, read ReadFunc[T], opts ...ReaderOption[T]) *FileDataReader[T] {
	r := &FileDataReader[T]{fs: fs, path: path, read: read}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Load reads the current value. A missing file yields Absent; a
// deserialize or I/O failure yields a captured Error. Only ctx cancellation
// is returned as a Go error.
func (r *FileDataReader[T]) Load(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	if err := ctx.Err(); err != nil {
		return LoadResult[T]{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.immutable && r.cached != nil {
		return r.cached.withCorrelationTag(correlationTag), nil
	}

	result, err := r.loadLocked(ctx, correlationTag)
	if err != nil {
		return LoadResult[T]{}, err
	}

	if r.immutable && !result.IsError() {
		cached := result
		r.cached = &cached
	}

	return result, nil
}

func (r *FileDataReader[T]) loadLocked(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	file, err := r.fs.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Absent[T](correlationTag, r.equal), nil
		}

		return Errored[T](fmt.Errorf("persist: open %q: %w: %w", r.path, ErrIO, err), correlationTag, r.equal), nil
	}

	defer func() { _ = file.Close() }()

	value, err := r.read(ctx, file)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LoadResult[T]{}, ctxErr
		}

		return Errored[T](fmt.Errorf("persist: deserialize %q: %w: %w", r.path, ErrDeserialize, err), correlationTag, r.equal), nil
	}

	return Present(value, correlationTag, r.equal), nil
}
