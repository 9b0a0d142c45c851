package persist

// NewTransactionContextForTest exposes newTransactionContext for testing.
func NewTransactionContextForTest[T any](read LoadResult[T], correlationTag any, equal EqualFunc[T]) *TransactionContext[T] {
	return NewTransactionContext(read, correlationTag, equal)
}
