package mesh

import "encoding/binary"

// TokenId identifies a token. Zero is reserved for the native token.
type TokenId uint64

// NativeTokenId is the reserved id of the network's native token.
const NativeTokenId TokenId = 0

// BEBytes returns the big-endian 8-byte encoding of the token id, used
// wherever a token id is hashed into an SMT key (TOKEN registry leaves,
// account leaf keys).
func (t TokenId) BEBytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(t))
	return b[:]
}

// Nonce is a per-(signer, token) monotone replay counter.
type Nonce uint64

// AccountKey returns the SMT key for the (address, token) leaf:
// H(address || token_id_be_u64), per the network's leaf-key contract.
func AccountKey(addr Address, token TokenId) Hash {
	return Sum(addr.Bytes(), token.BEBytes())
}

// tokenCounterKey is the distinguished SMT key of the token registry's
// counter leaf, described in the account model.
var tokenCounterKey = Sum([]byte("TOKEN_COUNTER"))

// TokenInfoKey returns the SMT key for a TokenInfo leaf:
// H("TOKEN" || token_id_be_u64).
func TokenInfoKey(token TokenId) Hash {
	return Sum([]byte("TOKEN"), token.BEBytes())
}

// TokenCounterKey returns the SMT key of the registry's next-token-id
// counter leaf.
func TokenCounterKey() Hash {
	return tokenCounterKey
}
