package kvstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelStore is the goleveldb-backed Store used by a running node. An
// in-memory store (below) backs tests that don't need persistence.
type levelStore struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if necessary) a goleveldb database at
// dir, sized for a single node's authenticated state store.
func OpenLevelDB(dir string) (Store, error) {
	opts := &opt.Options{
		OpenFilesCacheCapacity: 512,
		BlockCacheCapacity:     8 * opt.MiB,
		WriteBuffer:            16 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(dir, opts)
	if err != nil {
		return nil, err
	}
	return &levelStore{db: db}, nil
}

// OpenMemLevelDB opens an in-memory goleveldb instance, used by tests
// that want the real engine's semantics without touching disk.
func OpenMemLevelDB() (Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &levelStore{db: db}, nil
}

func (s *levelStore) Get(key []byte) ([]byte, error) { return s.db.Get(key, nil) }
func (s *levelStore) Has(key []byte) (bool, error)   { return s.db.Has(key, nil) }
func (s *levelStore) IsNotFound(err error) bool      { return err == leveldb.ErrNotFound }
func (s *levelStore) Put(key, value []byte) error    { return s.db.Put(key, value, nil) }
func (s *levelStore) Delete(key []byte) error        { return s.db.Delete(key, nil) }
func (s *levelStore) Close() error                   { return s.db.Close() }

func (s *levelStore) NewBatch() Batch {
	return &levelBatch{db: s.db, batch: new(leveldb.Batch)}
}

func (s *levelStore) NewIterator(r Range) Iterator {
	return &levelIterator{it: s.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)}
}

func (s *levelStore) Snapshot() Snapshot {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		// goleveldb only fails to snapshot a closed/corrupt db; surface
		// a snapshot that errors on every read rather than panic.
		return &errSnapshot{err: err}
	}
	return &levelSnapshot{snap: snap}
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) error { b.batch.Put(key, value); return nil }
func (b *levelBatch) Delete(key []byte) error      { b.batch.Delete(key); return nil }
func (b *levelBatch) Len() int                     { return b.batch.Len() }
func (b *levelBatch) Write() error                 { return b.db.Write(b.batch, nil) }

type levelIterator struct {
	it  interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
		Error() error
	}
}

func (it *levelIterator) Next() bool      { return it.it.Next() }
func (it *levelIterator) Key() []byte     { return it.it.Key() }
func (it *levelIterator) Value() []byte   { return it.it.Value() }
func (it *levelIterator) Release()        { it.it.Release() }
func (it *levelIterator) Error() error    { return it.it.Error() }

type levelSnapshot struct {
	snap *leveldb.Snapshot
}

func (s *levelSnapshot) Get(key []byte) ([]byte, error) { return s.snap.Get(key, nil) }
func (s *levelSnapshot) Has(key []byte) (bool, error)   { return s.snap.Has(key, nil) }
func (s *levelSnapshot) IsNotFound(err error) bool      { return err == leveldb.ErrNotFound }
func (s *levelSnapshot) NewIterator(r Range) Iterator {
	return &levelIterator{it: s.snap.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)}
}
func (s *levelSnapshot) Release() { s.snap.Release() }

type errSnapshot struct{ err error }

func (s *errSnapshot) Get(key []byte) ([]byte, error)    { return nil, s.err }
func (s *errSnapshot) Has(key []byte) (bool, error)      { return false, s.err }
func (s *errSnapshot) IsNotFound(err error) bool         { return false }
func (s *errSnapshot) NewIterator(r Range) Iterator {
	return &levelIterator{it: iterator.NewEmptyIterator(s.err)}
}
func (s *errSnapshot) Release()                          {}
