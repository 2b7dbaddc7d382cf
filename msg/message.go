// Package msg implements the message layer (C3): the four
// state-mutating message types (Transfer, Mint, IssueToken, Burn),
// their canonical fixed-field binary encoding, and Ed25519 signing and
// verification. Each message carries the nonce the state engine checks
// for replay; that check lives in the engine, not here.
package msg

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/ledgerless/ledgerless/mesh"
)

// Kind tags a message's variant on the wire, since the gossip fabric
// and the RPC submit path both need to decode an envelope without
// knowing its type in advance.
type Kind byte

const (
	KindTransfer   Kind = 1
	KindMint       Kind = 2
	KindIssueToken Kind = 3
	KindBurn       Kind = 4
)

// Message is the common surface every variant satisfies: enough to
// compute a replay key, a signing digest and a gossip message ID
// without the caller switching on the concrete type.
type Message interface {
	Kind() Kind
	Signer() mesh.Address
	TokenID() mesh.TokenId
	Nonce() mesh.Nonce
	// Encode renders the canonical wire form with the real signature.
	Encode() []byte
	// SigningDigest is SHA-256 of the canonical form with the
	// signature field replaced by 64 zero bytes.
	SigningDigest() mesh.Hash
	// Signature returns the 64-byte Ed25519 signature carried on the
	// message.
	Signature() [64]byte
}

// MsgID is the gossip-layer deduplication key: H(canonical_encoding).
func MsgID(m Message) mesh.Hash {
	return mesh.Sum(m.Encode())
}

// VerifySignature checks m's signature against its signer's public
// key over its signing digest.
func VerifySignature(m Message) bool {
	digest := m.SigningDigest()
	sig := m.Signature()
	return ed25519.Verify(ed25519.PublicKey(m.Signer().Bytes()), digest.Bytes(), sig[:])
}

// Sign computes the signature over m's signing digest using priv, and
// returns it ready to be placed into the message's Signature field.
func Sign(priv ed25519.PrivateKey, m Message) [64]byte {
	var out [64]byte
	sig := ed25519.Sign(priv, m.SigningDigest().Bytes())
	copy(out[:], sig)
	return out
}

func putAddress(dst []byte, a mesh.Address)   { copy(dst, a.Bytes()) }
func putHash(dst []byte, h mesh.Hash)         { copy(dst, h.Bytes()) }
func putTokenID(dst []byte, t mesh.TokenId)   { binary.LittleEndian.PutUint64(dst, uint64(t)) }
func putNonce(dst []byte, n mesh.Nonce)       { binary.LittleEndian.PutUint64(dst, uint64(n)) }
func putBalance(dst []byte, b mesh.Balance) {
	b16 := b.Bytes16()
	copy(dst, b16[:])
}

func getAddress(src []byte) mesh.Address { return mesh.BytesToAddress(src) }
func getHash(src []byte) mesh.Hash       { return mesh.BytesToHash(src) }
func getTokenID(src []byte) mesh.TokenId { return mesh.TokenId(binary.LittleEndian.Uint64(src)) }
func getNonce(src []byte) mesh.Nonce     { return mesh.Nonce(binary.LittleEndian.Uint64(src)) }
func getBalance(src []byte) mesh.Balance {
	var b16 [16]byte
	copy(b16[:], src)
	return mesh.BalanceFromBytes16(b16)
}
