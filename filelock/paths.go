// Package filelock implements the exclusive lock-file protocol and the
// forward/backward recovery rules that keep the four-file scheme
// (COMMITTED, NEW, OLD, LOCK) consistent across crashes and concurrent
// openers.
package filelock

// Paths names the four files derived from a single base path P that the
// persister core manages:
//
//	COMMITTED = P      last durable value
//	NEW       = P.new  staged next value, not yet durable
//	OLD       = P.old  previous COMMITTED, briefly present during the rename pivot
//	LOCK      = P.lck  exclusive-open sentinel held for the duration of any operation
type Paths struct {
	Committed string
	New       string
	Old       string
	Lock      string
}

// For derives the four-file naming scheme from a single base path.
func For(base string) Paths {
	return Paths{
		Committed: base,
		New:       base + ".new",
		Old:       base + ".old",
		Lock:      base + ".lck",
	}
}
