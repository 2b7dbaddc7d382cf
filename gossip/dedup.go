package gossip

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/ledgerless/ledgerless/mesh"
)

// dedupCacheSize bounds how many recent msg_ids are remembered. Sized
// generously above a plausible per-topic burst rate so a message
// doesn't get re-accepted after simply cycling out.
const dedupCacheSize = 65536

// dedup deduplicates gossip deliveries by msg_id = H(canonical_encoding).
type dedup struct {
	seen *lru.Cache
}

func newDedup() *dedup {
	c, err := lru.New(dedupCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &dedup{seen: c}
}

// seenBefore reports whether id has already been processed, marking it
// seen as a side effect if not.
func (d *dedup) seenBefore(id mesh.Hash) bool {
	if d.seen.Contains(id) {
		return true
	}
	d.seen.Add(id, struct{}{})
	return false
}
