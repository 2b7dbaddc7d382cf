package gossip

import (
	"time"

	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/golang/snappy"
	"github.com/pborman/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

// syncPageLimit bounds how many leaves a single page carries. Kept
// small enough that a page plus its proofs stays well under
// MaxMsgSize even at the tree's full 256-level depth.
const syncPageLimit = 512

// maxSyncPeers bounds how many peers a single session fans out across.
// Each gets a disjoint shard of the key space, so state sync completes
// in roughly 1/maxSyncPeers the time of talking to one peer, and a
// stalled shard can be reassigned without restarting the others.
const maxSyncPeers = 3

// syncStallTimeout is how long a shard may sit without a fresh page
// before reassignStalledShards hands it to a different peer.
const syncStallTimeout = 3 * heartbeatInterval

// syncPageRequest asks a peer for up to Limit leaves with StartKey <=
// key < EndKey, as of the root that peer last advertised over roots/v1
// (TargetRoot). The peer always answers against its current root,
// which may have moved on since; the response's Root says which.
// EndKey of the zero hash means unbounded (used by the session's last
// shard, which covers everything its lower-numbered siblings don't).
type syncPageRequest struct {
	TargetRoot mesh.Hash
	StartKey   mesh.Hash
	EndKey     mesh.Hash
	Limit      uint32
}

// wireLeafEntry is one page entry on the wire: a leaf plus its
// membership proof against the response's Root. Value and Proof are
// snappy-compressed independently of the surrounding RLP frame, since
// proofs in particular are long runs of near-identical sibling hashes
// near the empty-subtree end.
type wireLeafEntry struct {
	Key   mesh.Hash
	Value []byte
	Proof []byte
}

type syncPageResponse struct {
	Root    mesh.Hash
	Entries []wireLeafEntry
	More    bool
}

// syncShard is one peer's slice of a session's key space: the
// half-open range [checkpoint, end), paged forward as responses come
// in. end is the zero hash for the last shard of a session, meaning
// "everything from checkpoint onward".
type syncShard struct {
	peer       enode.ID
	checkpoint mesh.Hash
	end        mesh.Hash
	done       bool
	lastSentAt time.Time
}

// syncSession tracks one in-flight reconstruction of a remote root,
// identified by that root so a restarted or interrupted session picks
// back up from each shard's checkpoint rather than starting over. id
// is a per-session correlation tag for logs only; the session's
// identity for every other purpose is targetRoot.
type syncSession struct {
	id         uuid.UUID
	targetRoot mesh.Hash
	shards     []*syncShard
	done       bool
}

func (s *syncSession) allShardsDoneLocked() bool {
	for _, sh := range s.shards {
		if !sh.done {
			return false
		}
	}
	return true
}

// startSync begins reconstructing the root seed last advertised,
// fanning the key space out across seed plus up to maxSyncPeers-1
// other peers currently advertising the same root. It is invoked on a
// persistent RootMismatch during gossip delivery.
func (n *Node) startSync(seed *peer) {
	n.peerRootsMu.Lock()
	target, known := n.peerRoots[seed.id]
	n.peerRootsMu.Unlock()
	if !known {
		n.log.Debug("no advertised root for sync peer yet", "peer", seed.id)
		return
	}
	if target == n.engine.Root() {
		return
	}

	n.syncMu.Lock()
	if sess, ok := n.sessions[target]; ok && !sess.done {
		n.syncMu.Unlock()
		return // already syncing toward this root
	}
	candidates := n.candidatePeersForRoot(target, seed)
	shards := make([]*syncShard, len(candidates))
	for i, p := range candidates {
		shards[i] = &syncShard{peer: p.id, checkpoint: shardLowerBound(i, len(candidates)), end: shardLowerBound(i+1, len(candidates))}
	}
	shards[len(shards)-1].end = mesh.Hash{}
	sess := &syncSession{id: uuid.NewRandom(), targetRoot: target, shards: shards}
	n.sessions[target] = sess
	n.syncMu.Unlock()

	n.log.Info("state sync started", "session", sess.id.String(), "target", target, "peers", len(candidates))

	g := new(errgroup.Group)
	for i, shard := range shards {
		p, sh := candidates[i], shard
		g.Go(func() error { return n.requestShardPage(p, sess, sh) })
	}
	if err := g.Wait(); err != nil {
		n.log.Debug("failed to start parallel state sync", "session", sess.id.String(), "err", err)
	}
}

// candidatePeersForRoot gathers up to maxSyncPeers distinct peers
// known to be advertising target, with seed (if non-nil) preferred
// first since it is the one whose message triggered the mismatch.
func (n *Node) candidatePeersForRoot(target mesh.Hash, seed *peer) []*peer {
	n.peerRootsMu.Lock()
	var ids []enode.ID
	for id, root := range n.peerRoots {
		if root == target {
			ids = append(ids, id)
		}
	}
	n.peerRootsMu.Unlock()

	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	out := make([]*peer, 0, maxSyncPeers)
	seen := make(map[enode.ID]bool)
	if seed != nil {
		out = append(out, seed)
		seen[seed.id] = true
	}
	for _, id := range ids {
		if len(out) >= maxSyncPeers {
			break
		}
		if seen[id] {
			continue
		}
		if p, ok := n.peers[id]; ok {
			out = append(out, p)
			seen[id] = true
		}
	}
	return out
}

// shardLowerBound divides the 256-bit key space into n roughly equal
// shards by varying only the top byte; coarse, but n never exceeds
// maxSyncPeers so byte-granularity is plenty.
func shardLowerBound(i, n int) mesh.Hash {
	var h mesh.Hash
	if i > 0 {
		h[0] = byte((i * 256) / n)
	}
	return h
}

func (n *Node) requestShardPage(p *peer, sess *syncSession, sh *syncShard) error {
	req := syncPageRequest{TargetRoot: sess.targetRoot, StartKey: sh.checkpoint, EndKey: sh.end, Limit: syncPageLimit}
	sh.lastSentAt = time.Now()
	return p2p.Send(p.rw, codeSyncReq, &req)
}

// reassignStalledShards hands any shard that hasn't produced a fresh
// page in syncStallTimeout to a different peer advertising the same
// target root, if one is known. It's driven off the heartbeat ticker
// so a peer that stops answering sync requests (but stays connected)
// doesn't wedge its session forever.
func (n *Node) reassignStalledShards() {
	type stalled struct {
		sess  *syncSession
		shard *syncShard
	}
	now := time.Now()
	n.syncMu.Lock()
	var due []stalled
	for _, sess := range n.sessions {
		if sess.done {
			continue
		}
		for _, sh := range sess.shards {
			if !sh.done && !sh.lastSentAt.IsZero() && now.Sub(sh.lastSentAt) > syncStallTimeout {
				due = append(due, stalled{sess, sh})
			}
		}
	}
	n.syncMu.Unlock()

	for _, d := range due {
		candidates := n.candidatePeersForRoot(d.sess.targetRoot, nil)
		var next *peer
		for _, p := range candidates {
			if p.id != d.shard.peer {
				next = p
				break
			}
		}
		if next == nil {
			continue // no alternate peer known yet; keep waiting on the original
		}
		n.syncMu.Lock()
		d.shard.peer = next.id
		n.syncMu.Unlock()
		n.log.Info("reassigning stalled sync shard", "session", d.sess.id.String(), "peer", next.id)
		if err := n.requestShardPage(next, d.sess, d.shard); err != nil {
			n.log.Debug("failed to reassign stalled sync shard", "session", d.sess.id.String(), "err", err)
		}
	}
}

// handleSyncRequest serves a page of the local tree's current state
// restricted to [StartKey, EndKey). It always answers against the
// current root rather than req's TargetRoot: the requester's
// handleSyncResponse compares against the Root actually returned, not
// the one it originally asked for.
func (n *Node) handleSyncRequest(from *peer, req syncPageRequest) error {
	if req.Limit == 0 || req.Limit > syncPageLimit {
		req.Limit = syncPageLimit
	}
	tree := n.engine.Tree()
	root := n.engine.Root()
	bounded := req.EndKey != (mesh.Hash{})

	leaves, err := tree.RangeLeaves(req.StartKey, int(req.Limit)+1)
	if err != nil {
		return err
	}
	more := false
	entries := make([]wireLeafEntry, 0, len(leaves))
	for _, l := range leaves {
		if bounded && !hashGreater(req.EndKey, l.Key) {
			break // reached the next shard's territory
		}
		if len(entries) == int(req.Limit) {
			more = true
			break
		}
		proof, err := tree.Prove(l.Key)
		if err != nil {
			return err
		}
		entries = append(entries, wireLeafEntry{
			Key:   l.Key,
			Value: snappy.Encode(nil, l.Value),
			Proof: snappy.Encode(nil, proof.Encode()),
		})
	}
	resp := syncPageResponse{Root: root, Entries: entries, More: more}
	return p2p.Send(from.rw, codeSyncResp, &resp)
}

// handleSyncResponse verifies every entry in a page against the
// response's advertised root, adopts the ones that check out, and
// requests the shard's next page or closes it out.
func (n *Node) handleSyncResponse(from *peer, resp syncPageResponse) error {
	n.syncMu.Lock()
	sess, sh := n.findShardForPeerLocked(from.id)
	n.syncMu.Unlock()
	if sess == nil {
		return nil // unsolicited or stale response, e.g. after its shard already completed
	}

	if len(resp.Entries) == 0 {
		return n.finishShard(sess, sh)
	}

	remote := make([]engine.RemoteLeaf, 0, len(resp.Entries))
	var lastKey mesh.Hash
	for _, e := range resp.Entries {
		value, err := snappy.Decode(nil, e.Value)
		if err != nil {
			n.scores.adjust(from.id, scoreBadMessage)
			return nil
		}
		proofBytes, err := snappy.Decode(nil, e.Proof)
		if err != nil {
			n.scores.adjust(from.id, scoreBadMessage)
			return nil
		}
		proof, err := smt.DecodeProof(proofBytes)
		if err != nil {
			n.scores.adjust(from.id, scoreBadMessage)
			return nil
		}
		remote = append(remote, engine.RemoteLeaf{Key: e.Key, Value: value, Proof: proof})
		if hashGreater(e.Key, lastKey) {
			lastKey = e.Key
		}
	}

	newRoot, accepted, err := n.engine.AdoptPage(remote, resp.Root)
	if err != nil {
		return err
	}
	if accepted < len(remote) {
		n.log.Debug("sync page had entries that failed proof verification", "peer", from.id, "rejected", len(remote)-accepted)
		n.scores.adjust(from.id, scoreBadMessage)
	} else {
		n.scores.adjust(from.id, scoreGoodMessage)
	}
	_ = newRoot

	n.syncMu.Lock()
	sh.checkpoint = nextKey(lastKey)
	stillGoing := resp.More
	n.syncMu.Unlock()

	if !stillGoing {
		return n.finishShard(sess, sh)
	}

	return n.requestShardPage(from, sess, sh)
}

// finishShard marks sh done and, if it was the session's last open
// shard, marks the whole session done and logs completion.
func (n *Node) finishShard(sess *syncSession, sh *syncShard) error {
	n.syncMu.Lock()
	sh.done = true
	allDone := sess.allShardsDoneLocked()
	if allDone {
		sess.done = true
	}
	n.syncMu.Unlock()
	if allDone {
		n.log.Info("state sync complete", "session", sess.id.String(), "root", sess.targetRoot)
	}
	return nil
}

func (n *Node) findShardForPeerLocked(id enode.ID) (*syncSession, *syncShard) {
	for _, sess := range n.sessions {
		if sess.done {
			continue
		}
		for _, sh := range sess.shards {
			if sh.peer == id && !sh.done {
				return sess, sh
			}
		}
	}
	return nil, nil
}

// hashGreater reports whether a sorts after b, byte for byte; used to
// track the highest key seen in a page without assuming the server
// returned entries in strict order (RangeLeaves does, but this guards
// against a misbehaving peer feeding a session backwards), and to test
// shard boundaries.
func hashGreater(a, b mesh.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// nextKey returns the lexicographically next 256-bit key after k,
// saturating at the all-ones key so a full-range sync terminates
// instead of wrapping back to the start.
func nextKey(k mesh.Hash) mesh.Hash {
	out := k
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out
		}
		out[i] = 0
	}
	for i := range out {
		out[i] = 0xff
	}
	return out
}
