// Package account implements the authenticated account and token
// model (C2) on top of the sparse Merkle tree in package smt: account
// balances/nonces and token registry entries, each with a bit-exact
// wire encoding that is what actually gets hashed into a leaf.
package account

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/mesh"
)

// LeafSize is the fixed encoded size of an AccountLeaf:
// u128 balance || u64 nonce || 32-byte address || u64 token_id. State
// sync uses it to tell an account leaf apart from a TokenInfo leaf
// sharing the same underlying leaf store.
const LeafSize = 16 + 8 + 32 + 8

const accountLeafSize = LeafSize

// Leaf is the unit stored at an account leaf of the tree. An absent
// key decodes, by convention, to Balance=0, Nonce=0.
type Leaf struct {
	Address mesh.Address
	TokenID TokenID
	Balance mesh.Balance
	Nonce   mesh.Nonce
}

// TokenID mirrors mesh.TokenId under the account package's own name so
// callers don't have to import mesh just to spell the type.
type TokenID = mesh.TokenId

// EmptyLeaf is the conventional value of an account that has never
// been credited: zero balance, zero nonce.
func EmptyLeaf(addr mesh.Address, token TokenID) Leaf {
	return Leaf{Address: addr, TokenID: token}
}

// Key returns the SMT key this leaf is stored under: H(address ‖
// token_id_be_u64).
func (l Leaf) Key() mesh.Hash {
	return mesh.AccountKey(l.Address, l.TokenID)
}

// Encode renders the bit-exact wire form hashed into leaf_hash.
func (l Leaf) Encode() []byte {
	buf := make([]byte, accountLeafSize)
	bal := l.Balance.Bytes16()
	copy(buf[0:16], bal[:])
	binary.LittleEndian.PutUint64(buf[16:24], uint64(l.Nonce))
	copy(buf[24:56], l.Address.Bytes())
	binary.LittleEndian.PutUint64(buf[56:64], uint64(l.TokenID))
	return buf
}

// DecodeLeaf parses the wire form produced by Encode.
func DecodeLeaf(buf []byte) (Leaf, error) {
	if len(buf) != accountLeafSize {
		return Leaf{}, ErrMalformedLeaf
	}
	var bal16 [16]byte
	copy(bal16[:], buf[0:16])
	l := Leaf{
		Balance: mesh.BalanceFromBytes16(bal16),
		Nonce:   mesh.Nonce(binary.LittleEndian.Uint64(buf[16:24])),
		Address: mesh.BytesToAddress(buf[24:56]),
		TokenID: TokenID(binary.LittleEndian.Uint64(buf[56:64])),
	}
	return l, nil
}
