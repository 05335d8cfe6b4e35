package db

// DatabaseProvider abstracts the key-value backend used by the header store.
// A missing key is reported as a nil value with a nil error.
type DatabaseProvider interface {
	// Get retrieves a value by key
	Get(key []byte) ([]byte, error)

	// Put stores a key-value pair
	Put(key, value []byte) error

	// Delete removes a key-value pair
	Delete(key []byte) error

	// Has checks if a key exists
	Has(key []byte) (bool, error)

	// Close closes the database connection
	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// IterableProvider extends DatabaseProvider with iteration capabilities
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix visits every key-value pair with the given prefix in key
	// order. The callback returns false to stop iteration.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch provides atomic batch operations
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	// Write commits all operations in the batch
	Write() error
	Reset()
	Len() int
}
