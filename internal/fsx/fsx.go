// Package fsx provides the narrow filesystem abstraction the persister core
// is built against.
//
// The only implementation in normal operation is [Real], a passthrough to
// the [os] package. The crash-recovery pass in [filelock] and the reads,
// writes, renames, and removals of the managed files in [persist] go
// through this interface (the lock file itself is handled with the os
// package directly), which keeps the crash-recovery
// and commit-pivot logic exercisable against file-state fixtures built
// directly on top of a real temp directory in tests, without depending on
// any particular test double.
package fsx

import (
	"io"
	"os"
)

// File is the subset of [os.File] the persister core needs.
//
// Implementations must behave like [os.File], including that [File.Fd]
// returns a valid OS file descriptor usable with syscalls such as
// [golang.org/x/sys/unix.Flock] until the file is closed.
type File interface {
	io.ReadWriteCloser
	io.Seeker

	// Fd returns the file descriptor, used for advisory locking.
	Fd() uintptr

	// Sync commits the file's contents to disk. See [os.File.Sync].
	Sync() error
}

// FS defines the filesystem operations the persister core depends on.
//
// All methods mirror their [os] package equivalents. Paths use OS semantics,
// not the slash-separated paths of the standard library io/fs package.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// Open opens a file for reading. See [os.Open].
	Open(path string) (File, error)

	// OpenFile opens a file with specified flags and permissions. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Remove deletes a file. See [os.Remove]. Not an error if the
	// file does not exist.
	Remove(path string) error

	// Rename moves/renames a file. See [os.Rename]. Atomic on the same filesystem.
	Rename(oldpath, newpath string) error
}

// Compile-time interface check.
var _ File = (*os.File)(nil)
