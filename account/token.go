package account

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/mesh"
)

// tokenInfoFixedSize is the size of TokenInfo's encoding excluding the
// variable-length metadata field:
// u64 token_id || 32-byte issuer || u32 metadata_len || ... || u128 total_supply || u128 max_supply
const tokenInfoFixedSize = 8 + 32 + 4 + 16 + 16

// TokenInfo describes a registered token: its issuer, human-readable
// metadata, and supply bounds. token_id=0 is the native token: its
// issuer is always the treasury address and its supply changes only
// via treasury-signed Mint messages.
type TokenInfo struct {
	TokenID     TokenID
	Issuer      mesh.Address
	Metadata    string // "name|symbol|decimals"
	TotalSupply mesh.Balance
	MaxSupply   mesh.Balance
}

// NativeTokenInfo builds the token_id=0 registry entry seeded at
// genesis.
func NativeTokenInfo(treasury mesh.Address, metadata string, maxSupply mesh.Balance) TokenInfo {
	return TokenInfo{
		TokenID:   mesh.NativeTokenId,
		Issuer:    treasury,
		Metadata:  metadata,
		MaxSupply: maxSupply,
	}
}

// Key returns the SMT key TokenInfo is stored under: H("TOKEN" ‖
// token_id_be_u64).
func (t TokenInfo) Key() mesh.Hash {
	return mesh.TokenInfoKey(t.TokenID)
}

// Encode renders the bit-exact wire form hashed into leaf_hash.
func (t TokenInfo) Encode() []byte {
	md := []byte(t.Metadata)
	buf := make([]byte, tokenInfoFixedSize+len(md))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(t.TokenID))
	copy(buf[8:40], t.Issuer.Bytes())
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(md)))
	off := 44
	copy(buf[off:off+len(md)], md)
	off += len(md)
	tot := t.TotalSupply.Bytes16()
	copy(buf[off:off+16], tot[:])
	off += 16
	max := t.MaxSupply.Bytes16()
	copy(buf[off:off+16], max[:])
	return buf
}

// DecodeTokenInfo parses the wire form produced by Encode.
func DecodeTokenInfo(buf []byte) (TokenInfo, error) {
	if len(buf) < 44 {
		return TokenInfo{}, ErrMalformedToken
	}
	tokenID := TokenID(binary.LittleEndian.Uint64(buf[0:8]))
	issuer := mesh.BytesToAddress(buf[8:40])
	mdLen := int(binary.LittleEndian.Uint32(buf[40:44]))
	off := 44
	if len(buf) < off+mdLen+32 {
		return TokenInfo{}, ErrMalformedToken
	}
	metadata := string(buf[off : off+mdLen])
	off += mdLen
	var tot16, max16 [16]byte
	copy(tot16[:], buf[off:off+16])
	off += 16
	copy(max16[:], buf[off:off+16])
	off += 16
	if off != len(buf) {
		return TokenInfo{}, ErrMalformedToken
	}
	return TokenInfo{
		TokenID:     tokenID,
		Issuer:      issuer,
		Metadata:    metadata,
		TotalSupply: mesh.BalanceFromBytes16(tot16),
		MaxSupply:   mesh.BalanceFromBytes16(max16),
	}, nil
}

// decodeCounter/encodeCounter decode and encode the token registry counter
// leaf's value, a bare little-endian u64.
func decodeCounter(buf []byte) (uint64, error) {
	if len(buf) != 8 {
		return 0, ErrMalformedToken
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func encodeCounter(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
