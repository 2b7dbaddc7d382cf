package smt

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
)

var (
	metaRootKey    = []byte("root")
	metaVersionKey = []byte("version")
)

// Tree is a 256-level sparse Merkle tree over a goleveldb-backed store.
// Internal nodes are content-addressed (keyed by their own hash) so
// that every past root remains reachable for as long as its nodes are
// not overwritten by garbage collection — which this package never
// does. Leaves are stored directly by key for O(1) point reads,
// bypassing the 256-level walk Prove still has to do.
type Tree struct {
	nodes  kvstore.Store
	leaves kvstore.Store
	meta   kvstore.Store
	cache  *nodeCache

	root    mesh.Hash
	version uint64
}

// NewTree opens a Tree over store, using "nodes/", "leaves/" and
// "meta/" sub-buckets. If the tree has never been written to, Root is
// EmptyRoot and Version is 0.
func NewTree(store kvstore.Store) (*Tree, error) {
	t := &Tree{
		nodes:  kvstore.Bucket(store, "nodes/"),
		leaves: kvstore.Bucket(store, "leaves/"),
		meta:   kvstore.Bucket(store, "meta/"),
		cache:  newNodeCache(),
		root:   EmptyRoot(),
	}
	rootBytes, err := t.meta.Get(metaRootKey)
	if err != nil {
		if !t.meta.IsNotFound(err) {
			return nil, err
		}
		t.cache.rememberRoot(t.root, 0)
		return t, nil
	}
	t.root = mesh.BytesToHash(rootBytes)
	verBytes, err := t.meta.Get(metaVersionKey)
	if err != nil {
		if !t.meta.IsNotFound(err) {
			return nil, err
		}
		return t, nil
	}
	t.version = binary.LittleEndian.Uint64(verBytes)
	t.cache.rememberRoot(t.root, t.version)
	return t, nil
}

// RecentRootVersion reports the version root was committed at, if it
// is still within the tree's recent-root retention window. A miss
// here doesn't mean root is unprovable — every committed root's nodes
// stay in the store forever — only that confirming it requires a
// Prove rather than an O(1) cache hit.
func (t *Tree) RecentRootVersion(root mesh.Hash) (uint64, bool) {
	return t.cache.versionOf(root)
}

// Root returns the tree's current root hash.
func (t *Tree) Root() mesh.Hash { return t.root }

// Version returns the number of Updates committed so far.
func (t *Tree) Version() uint64 { return t.version }

// Get reads the value stored at key directly, without walking the
// tree. ok is false if no leaf is stored at key.
func (t *Tree) Get(key mesh.Hash) (value []byte, ok bool, err error) {
	v, err := t.leaves.Get(key.Bytes())
	if err != nil {
		if t.leaves.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// LeafEntry is one (key, value) pair as returned by RangeLeaves.
type LeafEntry struct {
	Key   mesh.Hash
	Value []byte
}

// RangeLeaves returns up to limit leaves with key >= start, in
// ascending key order. It is the pagination primitive state sync
// walks to reconstruct a remote's full account set: the leaves bucket
// happens to be keyed by the SMT key itself, so a byte-range scan over
// it is exactly "a contiguous range of SMT keys".
func (t *Tree) RangeLeaves(start mesh.Hash, limit int) ([]LeafEntry, error) {
	it := t.leaves.NewIterator(kvstore.Range{Start: start.Bytes()})
	defer it.Release()
	out := make([]LeafEntry, 0, limit)
	for len(out) < limit && it.Next() {
		out = append(out, LeafEntry{Key: mesh.BytesToHash(it.Key()), Value: append([]byte{}, it.Value()...)})
	}
	return out, it.Error()
}

func (t *Tree) getNode(h mesh.Hash) (left, right mesh.Hash, err error) {
	if left, right, ok := t.cache.getNode(h); ok {
		return left, right, nil
	}
	buf, err := t.nodes.Get(h.Bytes())
	if err != nil {
		if t.nodes.IsNotFound(err) {
			return mesh.Hash{}, mesh.Hash{}, ErrNodeNotFound
		}
		return mesh.Hash{}, mesh.Hash{}, err
	}
	if len(buf) != 64 {
		return mesh.Hash{}, mesh.Hash{}, ErrNodeNotFound
	}
	left, right = mesh.BytesToHash(buf[:32]), mesh.BytesToHash(buf[32:])
	t.cache.addNode(h, left, right)
	return left, right, nil
}

// children returns the two children of the subtree hash h, where h
// covers levelsRemaining levels down to the leaf row. An h equal to
// the empty-subtree hash at that height is resolved without a store
// lookup, since empty subtrees are never persisted.
func (t *Tree) children(h mesh.Hash, levelsRemaining int) (left, right mesh.Hash, err error) {
	if h == ZeroHash(levelsRemaining) {
		z := ZeroHash(levelsRemaining - 1)
		return z, z, nil
	}
	return t.getNode(h)
}

// Prove builds a membership (or absence) proof for key against the
// tree's current root.
func (t *Tree) Prove(key mesh.Hash) (*Proof, error) {
	return t.ProveAt(t.root, key)
}

// ProveAt builds a proof for key against an arbitrary root, current or
// historical. Nodes are content-addressed and never garbage collected
// (see Tree's doc comment), so any root ever committed stays provable
// this way for as long as the store exists; RecentRootVersion just
// tells a caller whether root is cheap to confirm (an LRU hit) or only
// provable (a walk to the store).
func (t *Tree) ProveAt(root mesh.Hash, key mesh.Hash) (*Proof, error) {
	siblings := make([]mesh.Hash, Depth)
	cur := root
	for d := 0; d < Depth; d++ {
		left, right, err := t.children(cur, Depth-d)
		if err != nil {
			return nil, err
		}
		if pathBit(key, d) == 0 {
			siblings[d] = right
			cur = left
		} else {
			siblings[d] = left
			cur = right
		}
	}
	trimmed, zerosOmitted := trimTrailingZeros(siblings)
	return &Proof{
		Siblings:     trimmed,
		LeafHash:     cur,
		Path:         key,
		ZerosOmitted: zerosOmitted,
	}, nil
}

// trimTrailingZeros drops the trailing run of siblings (leaf-adjacent
// end) that equal their expected empty-subtree hash, returning the
// shortened slice and how many were dropped.
func trimTrailingZeros(siblings []mesh.Hash) ([]mesh.Hash, uint16) {
	n := len(siblings)
	zeros := 0
	for i := n - 1; i >= 0; i-- {
		if siblings[i] == ZeroHash(Depth-(i+1)) {
			zeros++
		} else {
			break
		}
	}
	return siblings[:n-zeros], uint16(zeros)
}

// Update stages a batch of leaf writes against a starting root,
// letting several Put/Delete calls within one logical message (e.g. a
// transfer's debit and credit) observe each other's in-flight changes
// before anything is persisted. Nothing touches the store until
// Commit.
type Update struct {
	tree    *Tree
	root    mesh.Hash
	overlay map[mesh.Hash][2]mesh.Hash
	leaves  map[mesh.Hash][]byte // nil value means delete
}

// NewUpdate starts a staged update from the tree's current root.
func (t *Tree) NewUpdate() *Update {
	return &Update{
		tree:    t,
		root:    t.root,
		overlay: make(map[mesh.Hash][2]mesh.Hash),
		leaves:  make(map[mesh.Hash][]byte),
	}
}

// Root returns the update's root as of the last successful Put/Delete.
func (u *Update) Root() mesh.Hash { return u.root }

// Get reads key as it stands within this update: a pending write
// staged earlier in the same update is visible even though nothing
// has been committed yet. Falls back to the tree's persisted value.
func (u *Update) Get(key mesh.Hash) (value []byte, ok bool, err error) {
	if v, staged := u.leaves[key]; staged {
		if v == nil {
			return nil, false, nil
		}
		return v, true, nil
	}
	return u.tree.Get(key)
}

func (u *Update) children(h mesh.Hash, levelsRemaining int) (left, right mesh.Hash, err error) {
	if h == ZeroHash(levelsRemaining) {
		z := ZeroHash(levelsRemaining - 1)
		return z, z, nil
	}
	if c, ok := u.overlay[h]; ok {
		return c[0], c[1], nil
	}
	return u.tree.getNode(h)
}

// Put stages key=value and advances the update's working root.
func (u *Update) Put(key mesh.Hash, value []byte) error {
	return u.apply(key, value)
}

// Delete stages the removal of key (its leaf becomes the empty hash).
func (u *Update) Delete(key mesh.Hash) error {
	return u.apply(key, nil)
}

func (u *Update) apply(key mesh.Hash, value []byte) error {
	siblings := make([]mesh.Hash, Depth)
	cur := u.root
	for d := 0; d < Depth; d++ {
		left, right, err := u.children(cur, Depth-d)
		if err != nil {
			return err
		}
		if pathBit(key, d) == 0 {
			siblings[d] = right
			cur = left
		} else {
			siblings[d] = left
			cur = right
		}
	}

	var acc mesh.Hash
	if value == nil {
		acc = ZeroHash(0)
	} else {
		acc = leafHash(key, value)
	}
	for d := Depth - 1; d >= 0; d-- {
		var left, right mesh.Hash
		if pathBit(key, d) == 0 {
			left, right = acc, siblings[d]
		} else {
			left, right = siblings[d], acc
		}
		newHash := combineInternal(left, right)
		if newHash != ZeroHash(Depth-d) {
			u.overlay[newHash] = [2]mesh.Hash{left, right}
		}
		acc = newHash
	}

	u.root = acc
	u.leaves[key] = value
	return nil
}

// Commit persists every staged node and leaf write in two atomic
// batches, then advances the tree's root and version. Historical
// nodes are never deleted: any root ever committed stays provable for
// as long as the underlying store exists.
func (u *Update) Commit() (mesh.Hash, error) {
	if len(u.overlay) > 0 {
		nodeBatch := u.tree.nodes.NewBatch()
		for h, children := range u.overlay {
			buf := make([]byte, 64)
			copy(buf[:32], children[0].Bytes())
			copy(buf[32:], children[1].Bytes())
			if err := nodeBatch.Put(h.Bytes(), buf); err != nil {
				return mesh.Hash{}, err
			}
		}
		if err := nodeBatch.Write(); err != nil {
			return mesh.Hash{}, err
		}
		for h, children := range u.overlay {
			u.tree.cache.addNode(h, children[0], children[1])
		}
	}

	if len(u.leaves) > 0 {
		leafBatch := u.tree.leaves.NewBatch()
		for k, v := range u.leaves {
			var err error
			if v == nil {
				err = leafBatch.Delete(k.Bytes())
			} else {
				err = leafBatch.Put(k.Bytes(), v)
			}
			if err != nil {
				return mesh.Hash{}, err
			}
		}
		if err := leafBatch.Write(); err != nil {
			return mesh.Hash{}, err
		}
	}

	version := u.tree.version + 1
	metaBatch := u.tree.meta.NewBatch()
	if err := metaBatch.Put(metaRootKey, u.root.Bytes()); err != nil {
		return mesh.Hash{}, err
	}
	verBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(verBuf, version)
	if err := metaBatch.Put(metaVersionKey, verBuf); err != nil {
		return mesh.Hash{}, err
	}
	if err := metaBatch.Write(); err != nil {
		return mesh.Hash{}, err
	}

	u.tree.root = u.root
	u.tree.version = version
	u.tree.cache.rememberRoot(u.root, version)
	return u.root, nil
}
