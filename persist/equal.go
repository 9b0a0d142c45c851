package persist

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// EqualFunc reports whether two values of T should be considered equal for
// change-detection and [LoadResult] equality purposes.
type EqualFunc[T any] func(a, b T) bool

// defaultEqual is used whenever a caller does not supply an EqualFunc. It
// prefers structural comparison via [cmp.Equal], matching how this module's
// test suite already diffs result records, and falls back to
// [reflect.DeepEqual] for types cmp refuses to handle on its own (unexported
// fields without a registered option), since change detection must never
// panic.
func defaultEqual[T any](a, b T) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()

	return cmp.Equal(a, b)
}
