package msg

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/mesh"
)

// IssueToken registers a new token. The engine ignores
// ProposedTokenId for assignment purposes — the actual id is always
// counter+1 — but the field is part of the signed payload so a
// client's intent is bound into the signature it produced.
//
// IssueToken has no token of its own yet to key a nonce namespace by,
// so its replay nonce is tracked against the native token (id 0).
type IssueToken struct {
	Issuer           mesh.Address
	ProposedTokenId  mesh.TokenId
	Metadata         string
	MaxSupply        mesh.Balance
	Nonce_           mesh.Nonce
	Sig              [64]byte
}

func (i *IssueToken) Kind() Kind            { return KindIssueToken }
func (i *IssueToken) Signer() mesh.Address  { return i.Issuer }
func (i *IssueToken) TokenID() mesh.TokenId { return mesh.NativeTokenId }
func (i *IssueToken) Nonce() mesh.Nonce     { return i.Nonce_ }
func (i *IssueToken) Signature() [64]byte   { return i.Sig }

const issueTokenFixedSize = 32 + 8 + 4 + 16 + 8 // issuer..nonce, excluding metadata bytes

func (i *IssueToken) encode(sig [64]byte) []byte {
	md := []byte(i.Metadata)
	buf := make([]byte, issueTokenFixedSize+len(md)+64)
	off := 0
	putAddress(buf[off:off+32], i.Issuer)
	off += 32
	putTokenID(buf[off:off+8], i.ProposedTokenId)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(md)))
	off += 4
	copy(buf[off:off+len(md)], md)
	off += len(md)
	putBalance(buf[off:off+16], i.MaxSupply)
	off += 16
	putNonce(buf[off:off+8], i.Nonce_)
	off += 8
	copy(buf[off:off+64], sig[:])
	return buf
}

func (i *IssueToken) Encode() []byte           { return i.encode(i.Sig) }
func (i *IssueToken) SigningDigest() mesh.Hash { return mesh.Sum(i.encode([64]byte{})) }

// DecodeIssueToken parses the wire form produced by Encode.
func DecodeIssueToken(buf []byte) (*IssueToken, error) {
	if len(buf) < 32+8+4 {
		return nil, ErrMalformed
	}
	i := &IssueToken{}
	off := 0
	i.Issuer = getAddress(buf[off : off+32])
	off += 32
	i.ProposedTokenId = getTokenID(buf[off : off+8])
	off += 8
	mdLen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	if len(buf) != off+mdLen+16+8+64 {
		return nil, ErrMalformed
	}
	i.Metadata = string(buf[off : off+mdLen])
	off += mdLen
	i.MaxSupply = getBalance(buf[off : off+16])
	off += 16
	i.Nonce_ = getNonce(buf[off : off+8])
	off += 8
	copy(i.Sig[:], buf[off:off+64])
	return i, nil
}
