package persist

import (
	"time"

	"github.com/rs/zerolog"
)

// FileDataPersisterSettings configures a [LockedFileDataPersister].
type FileDataPersisterSettings struct {
	// NumRetries is the maximum number of additional lock-acquisition
	// attempts after the first. Default 3.
	NumRetries int

	// RetryDelay is the base linear back-off between lock-acquisition
	// attempts: attempt n waits n * RetryDelay. Default 100ms.
	RetryDelay time.Duration

	// ExclusiveMode, when true, keeps COMMITTED open between operations and
	// caches the deserialized LoadResult in memory, invalidating both
	// before any write and re-establishing them after a successful commit.
	// Default true.
	ExclusiveMode bool

	// Logger receives debug/trace events from lock acquisition and
	// recovery, and a warning when the exclusive-mode cache cannot be
	// re-established after a commit. Defaults to a no-op logger: the
	// library is silent unless a caller opts in.
	Logger zerolog.Logger
}

// DefaultSettings returns num_retries=3, retry_delay=100ms, exclusive_mode=true,
// and a no-op logger.
func DefaultSettings() FileDataPersisterSettings {
	return FileDataPersisterSettings{
		NumRetries:    3,
		RetryDelay:    100 * time.Millisecond,
		ExclusiveMode: true,
		Logger:        zerolog.Nop(),
	}
}
