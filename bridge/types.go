package bridge

import (
	"time"

	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

// Direction distinguishes which side of the bridge an Operation moves
// value toward.
type Direction uint8

const (
	// NativeToExternal is a lock on the native side paired with a
	// wrapped mint on the external chain.
	NativeToExternal Direction = iota
	// ExternalToNative is a lock on the external chain paired with a
	// release (Mint) on the native side.
	ExternalToNative
)

func (d Direction) String() string {
	if d == ExternalToNative {
		return "external-to-native"
	}
	return "native-to-external"
}

// State is a bridge operation's position in the
// Pending -> Proven -> Relayed -> Settled lifecycle, with terminal
// Expired and Failed states.
type State uint8

const (
	Pending State = iota
	Proven
	Relayed
	Settled
	Expired
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Proven:
		return "proven"
	case Relayed:
		return "relayed"
	case Settled:
		return "settled"
	case Expired:
		return "expired"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// LockReceipt is generated on the native side once a Transfer credits
// the bridge escrow address: it is the object a relayer submits to
// the external contract, which verifies PathProof against its stored
// currentRoot before minting a wrapped token.
type LockReceipt struct {
	SrcRoot   mesh.Hash
	Addr      mesh.Address
	TokenID   mesh.TokenId
	Amount    mesh.Balance
	PathProof *smt.Proof
}

// canonicalReceipt is LockReceipt's drlp-encodable shape: *smt.Proof
// is encoded separately via its own fixed binary codec rather than
// drlp's reflection-driven encoding, since its shape (a variable-
// length sibling list plus a zeros-omitted count) is already spec-
// fixed, not something drlp should decide on its own.
type canonicalReceipt struct {
	SrcRoot []byte
	Addr    []byte
	TokenID uint64
	Amount  []byte
	Proof   []byte
}

func (r LockReceipt) canonical() canonicalReceipt {
	amt := r.Amount.Bytes16()
	return canonicalReceipt{
		SrcRoot: r.SrcRoot.Bytes(),
		Addr:    r.Addr.Bytes(),
		TokenID: uint64(r.TokenID),
		Amount:  amt[:],
		Proof:   r.PathProof.Encode(),
	}
}

// ReleaseRequest is constructed by the native-side bridge watcher once
// it observes a confirmed Locked event on the external chain: it
// carries the external transaction hash so used_ext_events can reject
// duplicates, and becomes a bridge-signed Mint on the native side.
type ReleaseRequest struct {
	ExtTxHash mesh.Hash
	Dst       mesh.Address
	TokenID   mesh.TokenId
	Amount    mesh.Balance
}

type canonicalRelease struct {
	ExtTxHash []byte
	Dst       []byte
	TokenID   uint64
	Amount    []byte
}

func (r ReleaseRequest) canonical() canonicalRelease {
	amt := r.Amount.Bytes16()
	return canonicalRelease{
		ExtTxHash: r.ExtTxHash.Bytes(),
		Dst:       r.Dst.Bytes(),
		TokenID:   uint64(r.TokenID),
		Amount:    amt[:],
	}
}

// Operation is the bridge's own bookkeeping record for one lock/
// release pairing, independent of the LockReceipt/ReleaseRequest
// payload it wraps.
type Operation struct {
	ID        mesh.Hash // H(receipt) or H(release request), the proof-consumer's replay key
	Direction Direction
	State     State
	CreatedAt time.Time
	ExpiresAt time.Time

	Receipt *LockReceipt     // set for NativeToExternal
	Release *ReleaseRequest  // set for ExternalToNative
}
