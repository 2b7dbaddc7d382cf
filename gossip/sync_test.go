package gossip

import (
	"crypto/ed25519"
	"testing"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/mesh"
)

func TestShardLowerBoundPartitionsKeySpace(t *testing.T) {
	assert.Equal(t, mesh.Hash{}, shardLowerBound(0, 3))
	assert.Equal(t, byte(256/3), shardLowerBound(1, 3)[0])
	assert.Equal(t, byte((2*256)/3), shardLowerBound(2, 3)[0])
	assert.True(t, hashGreater(shardLowerBound(2, 3), shardLowerBound(1, 3)))
	assert.True(t, hashGreater(shardLowerBound(1, 3), shardLowerBound(0, 3)))
}

func TestNextKeySaturatesAtAllOnes(t *testing.T) {
	var max mesh.Hash
	for i := range max {
		max[i] = 0xff
	}
	assert.Equal(t, max, nextKey(max))

	var k mesh.Hash
	k[31] = 0xfe
	next := nextKey(k)
	assert.Equal(t, byte(0xff), next[31])
}

func TestCandidatePeersForRootPrefersSeedThenFillsFromPeerRoots(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	n := newTestNode(t, priv)

	target := mesh.Sum([]byte("target"))
	other := mesh.Sum([]byte("other"))

	seed := &peer{id: enode.ID{1}}
	p2 := &peer{id: enode.ID{2}}
	p3 := &peer{id: enode.ID{3}}
	p4 := &peer{id: enode.ID{4}}

	n.peersMu.Lock()
	n.peers[seed.id] = seed
	n.peers[p2.id] = p2
	n.peers[p3.id] = p3
	n.peers[p4.id] = p4
	n.peersMu.Unlock()

	n.peerRootsMu.Lock()
	n.peerRoots[seed.id] = target
	n.peerRoots[p2.id] = target
	n.peerRoots[p3.id] = target
	n.peerRoots[p4.id] = other // advertises a different root, must be excluded
	n.peerRootsMu.Unlock()

	candidates := n.candidatePeersForRoot(target, seed)
	require.Len(t, candidates, maxSyncPeers)
	assert.Equal(t, seed.id, candidates[0].id, "the seed peer that triggered the mismatch must be first")
	for _, c := range candidates {
		assert.NotEqual(t, p4.id, c.id)
	}
}

func TestCandidatePeersForRootWithoutSeedDrawsOnlyFromPeerRoots(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	n := newTestNode(t, priv)

	target := mesh.Sum([]byte("target"))
	p1 := &peer{id: enode.ID{1}}

	n.peersMu.Lock()
	n.peers[p1.id] = p1
	n.peersMu.Unlock()

	n.peerRootsMu.Lock()
	n.peerRoots[p1.id] = target
	n.peerRootsMu.Unlock()

	candidates := n.candidatePeersForRoot(target, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, p1.id, candidates[0].id)
}
