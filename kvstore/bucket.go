package kvstore

// bucket prefixes every key with a fixed namespace so that several
// logical stores (the SMT node store, the leaf store, the token
// registry, the bridge replay sets) can share one physical database
// without key collisions.
type bucket struct {
	parent Store
	prefix []byte
}

func (b *bucket) key(k []byte) []byte {
	out := make([]byte, len(b.prefix)+len(k))
	copy(out, b.prefix)
	copy(out[len(b.prefix):], k)
	return out
}

func (b *bucket) Get(key []byte) ([]byte, error)     { return b.parent.Get(b.key(key)) }
func (b *bucket) Has(key []byte) (bool, error)       { return b.parent.Has(b.key(key)) }
func (b *bucket) IsNotFound(err error) bool          { return b.parent.IsNotFound(err) }
func (b *bucket) Put(key, value []byte) error        { return b.parent.Put(b.key(key), value) }
func (b *bucket) Delete(key []byte) error            { return b.parent.Delete(b.key(key)) }
func (b *bucket) Close() error                       { return nil }

func (b *bucket) NewBatch() Batch {
	return &bucketBatch{b: b, inner: b.parent.NewBatch()}
}

func (b *bucket) NewIterator(r Range) Iterator {
	return b.parent.NewIterator(bucketRange(b.prefix, r))
}

func (b *bucket) Snapshot() Snapshot {
	return &bucketSnapshot{b: b, inner: b.parent.Snapshot()}
}

func bucketRange(prefix []byte, r Range) Range {
	start := append(append([]byte{}, prefix...), r.Start...)
	var limit []byte
	if r.Limit == nil {
		limit = upperBound(prefix)
	} else {
		limit = append(append([]byte{}, prefix...), r.Limit...)
	}
	return Range{Start: start, Limit: limit}
}

// upperBound returns the smallest key greater than every key sharing
// prefix, used as the Limit of an unbounded range scan within a bucket.
func upperBound(prefix []byte) []byte {
	out := append([]byte{}, prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil // prefix is all 0xff: unbounded above
}

type bucketBatch struct {
	b     *bucket
	inner Batch
}

func (bb *bucketBatch) Put(key, value []byte) error { return bb.inner.Put(bb.b.key(key), value) }
func (bb *bucketBatch) Delete(key []byte) error      { return bb.inner.Delete(bb.b.key(key)) }
func (bb *bucketBatch) Len() int                     { return bb.inner.Len() }
func (bb *bucketBatch) Write() error                 { return bb.inner.Write() }

type bucketSnapshot struct {
	b     *bucket
	inner Snapshot
}

func (bs *bucketSnapshot) Get(key []byte) ([]byte, error) { return bs.inner.Get(bs.b.key(key)) }
func (bs *bucketSnapshot) Has(key []byte) (bool, error)   { return bs.inner.Has(bs.b.key(key)) }
func (bs *bucketSnapshot) IsNotFound(err error) bool       { return bs.inner.IsNotFound(err) }
func (bs *bucketSnapshot) NewIterator(r Range) Iterator {
	return bs.inner.NewIterator(bucketRange(bs.b.prefix, r))
}
func (bs *bucketSnapshot) Release() { bs.inner.Release() }
