package gossip

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/p2p/nat"

	"github.com/ledgerless/ledgerless/co"
	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msg"
)

// defaultTTL bounds how many hops a gossip message may still be
// re-forwarded for; it is decremented on every relay.
const defaultTTL = 8

// heartbeatInterval is T in the roots/v1 heartbeat, default 10s.
const heartbeatInterval = 10 * time.Second

// Config configures a Node.
type Config struct {
	PrivateKey     *ecdsa.PrivateKey // devp2p transport identity
	SigningKey     ed25519.PrivateKey // signs this node's roots/v1 heartbeats
	ListenAddr     string
	MaxPeers       int
	BootstrapNodes []*enode.Node
	NoDiscovery    bool
	NAT            nat.Interface // port mapping for peers behind NAT; nil disables it
}

// Node runs the replication fabric for one local Engine: it owns the
// devp2p server, dedup cache, peer scores, and drives state sync.
type Node struct {
	cfg    Config
	engine *engine.Engine
	log    *slog.Logger

	srv    *p2p.Server
	dedup  *dedup
	scores *scoreTable

	peersMu sync.Mutex
	peers   map[enode.ID]*peer

	heights map[mesh.Hash]uint64 // advertised height per seen root, from roots/v1
	heightsMu sync.Mutex

	peerRoots   map[enode.ID]mesh.Hash // last root each peer's roots/v1 heartbeat advertised
	peerRootsMu sync.Mutex

	syncMu   sync.Mutex
	sessions map[mesh.Hash]*syncSession // in-flight/checkpointed sync sessions, keyed by target root

	goes co.Goes
	quit chan struct{}
}

// New builds a Node around eng, not yet started.
func New(cfg Config, eng *engine.Engine, log *slog.Logger) *Node {
	n := &Node{
		cfg:     cfg,
		engine:  eng,
		log:     log,
		dedup:   newDedup(),
		scores:  newScoreTable(),
		peers:     make(map[enode.ID]*peer),
		heights:   make(map[mesh.Hash]uint64),
		peerRoots: make(map[enode.ID]mesh.Hash),
		sessions:  make(map[mesh.Hash]*syncSession),
		quit:      make(chan struct{}),
	}
	n.srv = &p2p.Server{
		Config: p2p.Config{
			Name:            "mesh-node",
			PrivateKey:      cfg.PrivateKey,
			MaxPeers:        cfg.MaxPeers,
			ListenAddr:      cfg.ListenAddr,
			NoDiscovery:     cfg.NoDiscovery,
			BootstrapNodes:  cfg.BootstrapNodes,
			NAT:             cfg.NAT,
			Protocols:       []p2p.Protocol{n.protocol()},
		},
	}
	return n
}

// Start brings up the devp2p server and the heartbeat loop.
func (n *Node) Start() error {
	if err := n.srv.Start(); err != nil {
		return err
	}
	n.goes.Go(n.heartbeatLoop)
	return nil
}

// Stop tears the node down and waits for its goroutines to exit.
func (n *Node) Stop() {
	close(n.quit)
	n.srv.Stop()
	n.goes.Wait()
}

// Self returns this node's discovery record, usable as a bootstrap
// address for other nodes.
func (n *Node) Self() *enode.Node { return n.srv.Self() }

func (n *Node) protocol() p2p.Protocol {
	return p2p.Protocol{
		Name:    ProtoName,
		Version: ProtoVersion,
		Length:  protocolLength(),
		Run:     n.runPeer,
	}
}

func (n *Node) runPeer(p *p2p.Peer, rw p2p.MsgReadWriter) error {
	if n.scores.banned(p.ID()) {
		return fmt.Errorf("gossip: peer %x is banned", p.ID())
	}
	pr := &peer{p2p: p, rw: rw, id: p.ID(), done: make(chan struct{})}
	n.peersMu.Lock()
	n.peers[pr.id] = pr
	n.peersMu.Unlock()
	defer func() {
		n.peersMu.Lock()
		delete(n.peers, pr.id)
		n.peersMu.Unlock()
		close(pr.done)
	}()

	for {
		msg, err := rw.ReadMsg()
		if err != nil {
			return err
		}
		err = n.handleFrame(pr, &msg)
		msg.Discard()
		if err != nil {
			n.scores.adjust(pr.id, scoreBadMessage)
			return err
		}
	}
}

type wireFrame struct {
	TTL     uint8
	Payload []byte
}

func (n *Node) handleFrame(from *peer, raw *p2p.Msg) error {
	if raw.Size > MaxMsgSize {
		return fmt.Errorf("gossip: frame too large")
	}
	switch raw.Code {
	case codeUpdate, codeMint, codeToken:
		var f wireFrame
		if err := raw.Decode(&f); err != nil {
			return err
		}
		return n.handleGossipEnvelope(from, raw.Code, f)
	case codeRoot:
		var hb rootHeartbeat
		if err := raw.Decode(&hb); err != nil {
			return err
		}
		return n.handleHeartbeat(from, hb)
	case codeSyncReq:
		var req syncPageRequest
		if err := raw.Decode(&req); err != nil {
			return err
		}
		return n.handleSyncRequest(from, req)
	case codeSyncResp:
		var resp syncPageResponse
		if err := raw.Decode(&resp); err != nil {
			return err
		}
		return n.handleSyncResponse(from, resp)
	default:
		return fmt.Errorf("gossip: unknown msg code %d", raw.Code)
	}
}

func (n *Node) handleGossipEnvelope(from *peer, code uint64, f wireFrame) error {
	m, err := msg.DecodeEnvelope(f.Payload)
	if err != nil {
		return err
	}
	if n.dedup.seenBefore(msg.MsgID(m)) {
		n.scores.adjust(from.id, scoreDuplicate)
		return nil
	}

	_, applyErr := n.engine.Apply(m)
	if applyErr != nil {
		if applyErr == engine.ErrRootMismatch {
			n.log.Info("root mismatch on gossip delivery, triggering sync", "from", from.id)
			n.goes.Go(func() { n.startSync(from) })
		}
		n.scores.adjust(from.id, scoreBadMessage)
		return nil // validation failure is not a protocol error on the wire
	}

	n.scores.adjust(from.id, scoreGoodMessage)
	if f.TTL > 0 {
		n.broadcast(code, f.Payload, f.TTL-1, from.id)
	}
	return nil
}

// broadcast relays payload on code to every connected peer but
// exclude, with the given remaining TTL.
func (n *Node) broadcast(code uint64, payload []byte, ttl uint8, exclude enode.ID) {
	n.peersMu.Lock()
	targets := make([]*peer, 0, len(n.peers))
	for id, p := range n.peers {
		if id != exclude {
			targets = append(targets, p)
		}
	}
	n.peersMu.Unlock()

	frame := wireFrame{TTL: ttl, Payload: payload}
	for _, p := range targets {
		_ = p2p.Send(p.rw, code, &frame)
	}
}

// Broadcast injects a locally-originated message (e.g. one just
// accepted over RPC) into the fabric at full TTL.
func (n *Node) Broadcast(m msg.Message) {
	env := msg.Envelope(m)
	id := msg.MsgID(m)
	n.dedup.seenBefore(id) // mark it seen so we don't re-relay it to ourselves
	var code uint64
	switch m.Kind() {
	case msg.KindTransfer:
		code = codeUpdate
	case msg.KindMint, msg.KindBurn:
		code = codeMint
	case msg.KindIssueToken:
		code = codeToken
	}
	n.broadcast(code, env, defaultTTL, enode.ID{})
}

// SyncProgress reports the engine's current height, the best known
// height of any in-flight sync session's target root, and whether a
// session is in fact running — for a process embedding this node to
// show sync progress without reaching into gossip's internals.
func (n *Node) SyncProgress() (current, target uint64, syncing bool) {
	current = n.engine.Tree().Version()

	n.syncMu.Lock()
	var targetRoot mesh.Hash
	for root, sess := range n.sessions {
		if !sess.done {
			targetRoot = root
			syncing = true
			break
		}
	}
	n.syncMu.Unlock()
	if !syncing {
		return current, current, false
	}

	n.heightsMu.Lock()
	target = n.heights[targetRoot]
	n.heightsMu.Unlock()
	return current, target, true
}

func (n *Node) peerCount() int {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	return len(n.peers)
}
