package persist

// resultState is the tri-state a [LoadResult] carries: present, absent, or
// a captured error. Exactly one of these ever holds.
type resultState uint8

const (
	statePresent resultState = iota
	stateAbsent
	stateError
)

// LoadResult is an immutable record carrying exactly one of three states:
// present with a value, absent, or a captured error. It never itself causes
// a throw; Load always returns one of these instead of propagating an
// unexpected error (cancellation is the one exception, and is returned
// out-of-band by the Load/Update methods).
type LoadResult[T any] struct {
	state          resultState
	value          T
	err            error
	correlationTag any
	equal          EqualFunc[T]
}

// Present builds a LoadResult carrying a value.
func Present[T any](value T, correlationTag any, equal EqualFunc[T]) LoadResult[T] {
	return LoadResult[T]{state: statePresent, value: value, correlationTag: correlationTag, equal: resolveEqual(equal)}
}

// Absent builds a LoadResult reporting no value exists.
func Absent[T any](correlationTag any, equal EqualFunc[T]) LoadResult[T] {
	return LoadResult[T]{state: stateAbsent, correlationTag: correlationTag, equal: resolveEqual(equal)}
}

// Errored builds a LoadResult carrying a captured error. err must not be nil.
func Errored[T any](err error, correlationTag any, equal EqualFunc[T]) LoadResult[T] {
	if err == nil {
		panic("persist: Errored called with a nil error")
	}

	return LoadResult[T]{state: stateError, err: err, correlationTag: correlationTag, equal: resolveEqual(equal)}
}

func resolveEqual[T any](equal EqualFunc[T]) EqualFunc[T] {
	if equal != nil {
		return equal
	}

	return defaultEqual[T]
}

// IsPresent reports whether the result carries a value.
func (r LoadResult[T]) IsPresent() bool { return r.state == statePresent }

// IsAbsent reports whether the result represents a confirmed absence.
func (r LoadResult[T]) IsAbsent() bool { return r.state == stateAbsent }

// IsError reports whether the result carries a captured error.
func (r LoadResult[T]) IsError() bool { return r.state == stateError }

// Value returns the carried value and true when present; otherwise the zero
// value of T and false.
func (r LoadResult[T]) Value() (T, bool) {
	if r.state != statePresent {
		var zero T

		return zero, false
	}

	return r.value, true
}

// Err returns the captured error, or nil when the result is not in the
// error state.
func (r LoadResult[T]) Err() error {
	if r.state != stateError {
		return nil
	}

	return r.err
}

// CorrelationTag returns the opaque, runtime-only caller-supplied tag
// threaded through from the originating Load or Update call.
func (r LoadResult[T]) CorrelationTag() any { return r.correlationTag }

// Equal compares is_present, is_error, and — when present — the carried
// value under the provider's equality comparer. Error identity is not part
// of equality: two Error results are equal regardless of the wrapped error.
func (r LoadResult[T]) Equal(other LoadResult[T]) bool {
	if r.state != other.state {
		return false
	}

	if r.state != statePresent {
		return true
	}

	eq := r.equal
	if eq == nil {
		eq = defaultEqual[T]
	}

	return eq(r.value, other.value)
}

// withCorrelationTag returns a copy of r carrying a different correlation
// tag, used internally when a decorator re-surfaces an inner result under
// the outer call's tag.
func (r LoadResult[T]) withCorrelationTag(tag any) LoadResult[T] {
	r.correlationTag = tag

	return r
}

// UpdateResult is an immutable record describing the outcome of an Update
// call: whether a commit actually happened, the pre-update snapshot, and the
// post-update snapshot.
//
// Invariant: if IsUpdated is true, Updated reflects the committed state
// (possibly Absent after a RemoveAndCommit). If IsUpdated is false because
// nothing was committed, Updated is the same value as Previous; if it is
// false because the update failed, Updated carries the captured error.
type UpdateResult[T any] struct {
	IsUpdated bool
	Previous  LoadResult[T]
	Updated   LoadResult[T]
}

// noUpdate builds an UpdateResult where nothing changed: Updated mirrors
// Previous exactly.
func noUpdate[T any](previous LoadResult[T]) UpdateResult[T] {
	return UpdateResult[T]{IsUpdated: false, Previous: previous, Updated: previous}
}
