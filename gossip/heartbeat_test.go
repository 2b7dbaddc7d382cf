package gossip

import (
	"crypto/ed25519"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
)

func newTestNode(t *testing.T, signingKey ed25519.PrivateKey) *Node {
	store, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	eng, err := engine.New(store)
	require.NoError(t, err)
	require.NoError(t, eng.Genesis(mesh.Treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))

	return New(Config{SigningKey: signingKey}, eng, slog.Default())
}

func TestSignHeartbeatProducesVerifiableSignature(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	n := newTestNode(t, priv)

	hb := n.signHeartbeat()
	assert.Equal(t, n.engine.Root(), hb.Root)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(hb.Signer.Bytes()), hb.signingDigest().Bytes(), hb.Sig[:]))
}

func TestHandleHeartbeatRejectsBadSignatureSilently(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	n := newTestNode(t, priv)

	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	hb := n.signHeartbeat()
	hb.Root = mesh.Sum([]byte("tampered"))
	hb.Sig = [64]byte{}
	copy(hb.Sig[:], ed25519.Sign(otherPriv, hb.signingDigest().Bytes()))

	err = n.handleHeartbeat(&peer{id: enode.ID{}}, hb)
	require.NoError(t, err)
	_, tracked := n.heights[hb.Root]
	assert.False(t, tracked, "a heartbeat whose signature doesn't match its claimed signer must be ignored")
}

func TestHandleHeartbeatRecordsHeightAndPeerRoot(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	n := newTestNode(t, priv)

	hb := n.signHeartbeat()
	p := &peer{id: enode.ID{9}}
	require.NoError(t, n.handleHeartbeat(p, hb))

	assert.Equal(t, hb.Height, n.heights[hb.Root])
	assert.Equal(t, hb.Root, n.peerRoots[p.id])
}
