package persist

import "context"

// DefaultValueOptions is a bitmask selecting the read/write mappings a
// [DefaultValueDataPersister] applies at the boundary between the caller and
// an inner persister.
type DefaultValueOptions uint8

const (
	// ReadEmptyToCustomDefault surfaces Present(customDefault) wherever the
	// inner Load is Absent.
	ReadEmptyToCustomDefault DefaultValueOptions = 1 << iota

	// ReadErrorToCustomDefault surfaces Present(customDefault) wherever the
	// inner Load is Error.
	ReadErrorToCustomDefault

	// ReadDefaultToCustomDefault surfaces Present(customDefault) wherever
	// the inner Load is Present with a value equal to T's zero value.
	ReadDefaultToCustomDefault

	// WriteDefaultToEmpty issues RemoveAndCommit on the inner persister
	// whenever the caller commits a value equal to T's zero value.
	WriteDefaultToEmpty

	// WriteCustomDefaultToEmpty issues RemoveAndCommit on the inner
	// persister whenever the caller commits a value equal to customDefault.
	WriteCustomDefaultToEmpty
)

// Has reports whether all bits in other are set in o.
func (o DefaultValueOptions) Has(other DefaultValueOptions) bool { return o&other == other }

// DefaultValueDataPersister decorates an inner [DataPersister], mapping
// between the underlying "empty/absent/error" states and a caller-chosen
// default value. It changes what is observed as present at the boundary
// between storage and caller without changing the inner persister's commit
// protocol.
type DefaultValueDataPersister[T any] struct {
	inner         DataPersister[T]
	customDefault T
	options       DefaultValueOptions
	equal         EqualFunc[T]
}

// DefaultValueOption configures a [DefaultValueDataPersister] at construction.
type DefaultValueOption[T any] func(*DefaultValueDataPersister[T])

// WithDefaultValueEqual overrides the default equality comparer used to
// detect the type's zero value and the custom default.
func WithDefaultValueEqual[T any](equal EqualFunc[T]) DefaultValueOption[T] {
	return func(d *DefaultValueDataPersister[T]) { d.equal = equal }
}

// NewDefaultValueDataPersister wraps inner, applying the read/write mappings
// selected by options against customDefault.
func NewDefaultValueDataPersister[T any](
	inner DataPersister[T], customDefault T, options DefaultValueOptions, opts ...DefaultValueOption[T],
) *DefaultValueDataPersister[T] {
	d := &DefaultValueDataPersister[T]{inner: inner, customDefault: customDefault, options: options}

	for _, opt := range opts {
		opt(d)
	}

	if d.equal == nil {
		d.equal = defaultEqual[T]
	}

	return d
}

// Compile-time interface check.
var _ DataPersister[int] = (*DefaultValueDataPersister[int])(nil)

// Load reads through the inner persister and applies the configured
// read-side mapping.
func (d *DefaultValueDataPersister[T]) Load(ctx context.Context, correlationTag any) (LoadResult[T], error) {
	result, err := d.inner.Load(ctx, correlationTag)
	if err != nil {
		return LoadResult[T]{}, err
	}

	return d.mapRead(result), nil
}

// Update exposes the mapped read to callback, re-interprets a commit against
// the write-side mapping, and delegates to the inner persister. The returned
// UpdateResult's Previous and Updated are both re-mapped so the outward
// result is consistent with what a fresh Load would report.
func (d *DefaultValueDataPersister[T]) Update(
	ctx context.Context, correlationTag any, callback Callback[T],
) (UpdateResult[T], error) {
	result, err := d.inner.Update(ctx, correlationTag, func(ctx context.Context, innerTC *TransactionContext[T]) error {
		return d.runMapped(ctx, innerTC, callback)
	})
	if err != nil {
		return UpdateResult[T]{}, err
	}

	return UpdateResult[T]{
		IsUpdated: result.IsUpdated,
		Previous:  d.mapRead(result.Previous),
		Updated:   d.mapRead(result.Updated),
	}, nil
}

// runMapped builds an outer TransactionContext seeded with the mapped read,
// invokes callback, and mirrors its outcome onto innerTC under the
// write-side mapping.
func (d *DefaultValueDataPersister[T]) runMapped(
	ctx context.Context, innerTC *TransactionContext[T], callback Callback[T],
) error {
	outerTC := newTransactionContext(d.mapRead(innerTC.Read()), innerTC.CorrelationTag(), d.equal)

	if err := callback(ctx, outerTC); err != nil {
		return err
	}

	if !outerTC.IsCommitted() {
		return nil
	}

	if outerTC.IsRemoved() {
		innerTC.RemoveAndCommit()

		return nil
	}

	value, _ := outerTC.CommittedValue()

	var zero T

	if d.options.Has(WriteDefaultToEmpty) && d.equal(value, zero) {
		innerTC.RemoveAndCommit()

		return nil
	}

	if d.options.Has(WriteCustomDefaultToEmpty) && d.equal(value, d.customDefault) {
		innerTC.RemoveAndCommit()

		return nil
	}

	innerTC.Commit(value)

	return nil
}

// mapRead applies the configured read-side mapping to a single LoadResult.
func (d *DefaultValueDataPersister[T]) mapRead(result LoadResult[T]) LoadResult[T] {
	tag := result.CorrelationTag()

	if result.IsAbsent() && d.options.Has(ReadEmptyToCustomDefault) {
		return Present(d.customDefault, tag, d.equal)
	}

	if result.IsError() && d.options.Has(ReadErrorToCustomDefault) {
		return Present(d.customDefault, tag, d.equal)
	}

	if result.IsPresent() && d.options.Has(ReadDefaultToCustomDefault) {
		var zero T

		if value, _ := result.Value(); d.equal(value, zero) {
			return Present(d.customDefault, tag, d.equal)
		}
	}

	return result
}
