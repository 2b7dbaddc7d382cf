package gossip

import (
	"sync"

	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/enode"
)

// peer wraps a devp2p peer with the gossip-level bookkeeping the
// fabric needs: its message stream, its node id, and a channel closed
// when its connection ends. Its score lives in scoreTable.
type peer struct {
	p2p  *p2p.Peer
	rw   p2p.MsgReadWriter
	id   enode.ID
	done chan struct{}
}

// scoreTable is peer scoring (§5's "bounded, lock-free snapshot" is
// approximated here with a plain RWMutex-guarded map; adjust is called
// from each peer's own runPeer goroutine, and snapshot hands readers a
// copy).
type scoreTable struct {
	mu     sync.RWMutex
	scores map[enode.ID]int64
}

func newScoreTable() *scoreTable {
	return &scoreTable{scores: make(map[enode.ID]int64)}
}

const (
	scoreGoodMessage = 1
	scoreBadMessage  = -4
	scoreDuplicate   = 0
	scoreBanThreshold = -50
)

func (t *scoreTable) adjust(id enode.ID, delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scores[id] += delta
}

func (t *scoreTable) score(id enode.ID) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scores[id]
}

// banned reports whether id has fallen below the ban threshold and
// should be dropped on its next connection attempt.
func (t *scoreTable) banned(id enode.ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scores[id] <= scoreBanThreshold
}

// snapshot returns a copy of the current table for read-only callers
// (e.g. an RPC diagnostics endpoint) without holding the lock for the
// duration of their use.
func (t *scoreTable) snapshot() map[enode.ID]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[enode.ID]int64, len(t.scores))
	for k, v := range t.scores {
		out[k] = v
	}
	return out
}
