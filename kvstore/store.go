// Package kvstore defines the storage abstraction every node package
// builds on, and a goleveldb-backed implementation of it. The shape
// mirrors the getter/putter/batch/iterator split used throughout the
// teacher's own storage layer so that the SMT, the account model and
// the bridge's replay-nonce sets can all share one embedded database
// with independent key namespaces.
package kvstore

// Getter reads key/value pairs.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// IsNotFound reports whether err (as returned by Get) means "no
	// such key" rather than an actual storage failure.
	IsNotFound(err error) bool
}

// Putter writes key/value pairs.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch groups a set of puts/deletes into one atomic write.
type Batch interface {
	Putter
	Len() int
	Write() error
}

// Range bounds an iteration: [Start, Limit).
type Range struct {
	Start []byte
	Limit []byte
}

// Iterator walks a key range in ascending key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Snapshot is a point-in-time, read-only view of the store.
type Snapshot interface {
	Getter
	NewIterator(r Range) Iterator
	Release()
}

// Store is the full store: reads, writes, snapshots, batches and
// namespacing via Bucket.
type Store interface {
	Getter
	Putter
	NewBatch() Batch
	NewIterator(r Range) Iterator
	Snapshot() Snapshot
	Close() error
}

// Bucket returns a namespaced view of s: every key is prefixed
// transparently with name, so unrelated components (nodes/, leaves/,
// tokens/, meta/, bridge/) never collide in one physical database.
func Bucket(s Store, name string) Store {
	return &bucket{s, []byte(name)}
}
