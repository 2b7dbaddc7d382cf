package gossip

import (
	"crypto/ed25519"
	"time"

	"github.com/ethereum/go-ethereum/p2p"

	"github.com/ledgerless/ledgerless/mesh"
)

// rootHeartbeat is the roots/v1 payload: a signed attestation of the
// sender's current root and version, broadcast every heartbeatInterval.
type rootHeartbeat struct {
	Root   mesh.Hash
	Height uint64
	Signer mesh.Address
	Sig    [64]byte
}

func (h rootHeartbeat) signingDigest() mesh.Hash {
	return mesh.Sum(h.Root.Bytes(), uint64LE(h.Height), h.Signer.Bytes())
}

func uint64LE(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func (n *Node) signHeartbeat() rootHeartbeat {
	var signer mesh.Address
	copy(signer[:], n.cfg.SigningKey.Public().(ed25519.PublicKey))
	hb := rootHeartbeat{
		Root:   n.engine.Root(),
		Height: n.engine.Tree().Version(),
		Signer: signer,
	}
	sig := ed25519.Sign(n.cfg.SigningKey, hb.signingDigest().Bytes())
	copy(hb.Sig[:], sig)
	return hb
}

func (n *Node) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.quit:
			return
		case <-ticker.C:
			n.broadcastHeartbeat()
			n.reassignStalledShards()
		}
	}
}

func (n *Node) broadcastHeartbeat() {
	hb := n.signHeartbeat()
	n.peersMu.Lock()
	targets := make([]*peer, 0, len(n.peers))
	for _, p := range n.peers {
		targets = append(targets, p)
	}
	n.peersMu.Unlock()
	for _, p := range targets {
		_ = p2p.Send(p.rw, codeRoot, &hb)
	}
}

func (n *Node) handleHeartbeat(from *peer, hb rootHeartbeat) error {
	if !ed25519.Verify(ed25519.PublicKey(hb.Signer.Bytes()), hb.signingDigest().Bytes(), hb.Sig[:]) {
		return nil // malformed heartbeat: ignore, don't drop the connection over it
	}
	n.heightsMu.Lock()
	n.heights[hb.Root] = hb.Height
	n.heightsMu.Unlock()

	n.peerRootsMu.Lock()
	n.peerRoots[from.id] = hb.Root
	n.peerRootsMu.Unlock()

	if hb.Root != n.engine.Root() {
		n.log.Debug("peer advertises a different root", "peer", from.id, "root", hb.Root, "localRoot", n.engine.Root())
	}
	return nil
}
