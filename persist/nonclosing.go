package persist

import "github.com/calvinalkan/persist/internal/fsx"

// nonClosingFile wraps an [fsx.File] so that callers cannot close the
// underlying handle. It forwards Read/Write/Seek and turns Close into a
// no-op. Used whenever the persister retains ownership of a file's
// lifetime across calls into caller-supplied read/write callbacks —
// exclusive-mode caching in particular.
type nonClosingFile struct {
	fsx.File
}

func nonClosing(f fsx.File) *nonClosingFile {
	return &nonClosingFile{File: f}
}

// Close is a no-op: the persister, not the callback, owns this handle.
func (*nonClosingFile) Close() error { return nil }
