package smt

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/qianbin/directcache"

	"github.com/ledgerless/ledgerless/mesh"
)

const (
	// defaultNodeCacheBytes bounds the off-heap blob cache sitting in
	// front of getNode's kvstore reads.
	defaultNodeCacheBytes = 32 * 1024 * 1024
	// defaultRecentRoots is how many of the most recently committed
	// roots stay resolvable to their version without a store lookup.
	defaultRecentRoots = 128
)

// nodeCache is the Tree's in-memory front for node lookups and recent
// roots. blobs holds node-hash -> 64-byte (left, right) pairs off-heap;
// recent holds root -> version for the last defaultRecentRoots commits.
// Both are best-effort: a miss always falls back to the store, so a
// cold or undersized cache only costs latency, never correctness.
type nodeCache struct {
	blobs  *directcache.Cache
	recent *lru.Cache
}

func newNodeCache() *nodeCache {
	recent, err := lru.New(defaultRecentRoots)
	if err != nil {
		// lru.New only errors for size <= 0.
		panic(err)
	}
	return &nodeCache{
		blobs:  directcache.New(defaultNodeCacheBytes),
		recent: recent,
	}
}

func (c *nodeCache) getNode(h mesh.Hash) (left, right mesh.Hash, ok bool) {
	var buf []byte
	if !c.blobs.AdvGet(h.Bytes(), func(val []byte) { buf = append([]byte(nil), val...) }, false) {
		return mesh.Hash{}, mesh.Hash{}, false
	}
	if len(buf) != 64 {
		return mesh.Hash{}, mesh.Hash{}, false
	}
	return mesh.BytesToHash(buf[:32]), mesh.BytesToHash(buf[32:]), true
}

func (c *nodeCache) addNode(h, left, right mesh.Hash) {
	_ = c.blobs.AdvSet(h.Bytes(), 64, func(val []byte) {
		copy(val[:32], left.Bytes())
		copy(val[32:], right.Bytes())
	})
}

func (c *nodeCache) rememberRoot(root mesh.Hash, version uint64) {
	c.recent.Add(root, version)
}

func (c *nodeCache) versionOf(root mesh.Hash) (uint64, bool) {
	v, ok := c.recent.Get(root)
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}
