// Package gossip implements the replication fabric (C5): peer
// discovery and transport over go-ethereum's devp2p stack, the four
// gossip topics, message-ID deduplication, TTL-bounded fan-out, peer
// scoring, and page-by-page state sync.
package gossip

// ProtoName and ProtoVersion identify the subprotocol negotiated
// during the devp2p handshake.
const (
	ProtoName    = "mesh"
	ProtoVersion = 1
)

// Message codes, one per gossip topic plus the state-sync exchange.
const (
	codeUpdate   = 0x01 // updates/v1 — transfers
	codeMint     = 0x02 // mints/v1 — mint and burn
	codeToken    = 0x03 // tokens/v1 — issuance
	codeRoot     = 0x04 // roots/v1 — heartbeat
	codeSyncReq  = 0x10
	codeSyncResp = 0x11

	// NumMsgCodes must cover every code above; p2p.Protocol.Length
	// rejects anything outside [0, NumMsgCodes).
	NumMsgCodes = 0x12
)

// MaxMsgSize bounds a single devp2p frame; state-sync pages are
// capped (see syncPageLimit) to stay well under it.
const MaxMsgSize = 10 * 1024 * 1024

func protocolLength() uint64 { return NumMsgCodes }
