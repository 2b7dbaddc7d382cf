package msg

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

// Transfer moves amount of token_id from From to To. The sender
// attaches membership proofs for both leaves' pre-state so any
// validator can revalidate the transition without a prior tree walk
// of its own, and states the post_root it expects the transition to
// produce.
type Transfer struct {
	From      mesh.Address
	To        mesh.Address
	TokenId   mesh.TokenId
	Amount    mesh.Balance
	PreRoot   mesh.Hash
	PostRoot  mesh.Hash
	Nonce_    mesh.Nonce
	ProofFrom *smt.Proof
	ProofTo   *smt.Proof
	Sig       [64]byte
}

func (t *Transfer) Kind() Kind             { return KindTransfer }
func (t *Transfer) Signer() mesh.Address   { return t.From }
func (t *Transfer) TokenID() mesh.TokenId  { return t.TokenId }
func (t *Transfer) Nonce() mesh.Nonce      { return t.Nonce_ }
func (t *Transfer) Signature() [64]byte    { return t.Sig }

const transferFixedSize = 32 + 32 + 8 + 16 + 32 + 32 + 8 // from..nonce

func (t *Transfer) encode(sig [64]byte) []byte {
	pf := t.ProofFrom.Encode()
	pt := t.ProofTo.Encode()
	buf := make([]byte, transferFixedSize+4+len(pf)+4+len(pt)+64)
	off := 0
	putAddress(buf[off:off+32], t.From)
	off += 32
	putAddress(buf[off:off+32], t.To)
	off += 32
	putTokenID(buf[off:off+8], t.TokenId)
	off += 8
	putBalance(buf[off:off+16], t.Amount)
	off += 16
	putHash(buf[off:off+32], t.PreRoot)
	off += 32
	putHash(buf[off:off+32], t.PostRoot)
	off += 32
	putNonce(buf[off:off+8], t.Nonce_)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(pf)))
	off += 4
	copy(buf[off:off+len(pf)], pf)
	off += len(pf)
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(pt)))
	off += 4
	copy(buf[off:off+len(pt)], pt)
	off += len(pt)
	copy(buf[off:off+64], sig[:])
	return buf
}

func (t *Transfer) Encode() []byte { return t.encode(t.Sig) }

func (t *Transfer) SigningDigest() mesh.Hash {
	return mesh.Sum(t.encode([64]byte{}))
}

// DecodeTransfer parses the wire form produced by Encode.
func DecodeTransfer(buf []byte) (*Transfer, error) {
	if len(buf) < transferFixedSize+4 {
		return nil, ErrMalformed
	}
	t := &Transfer{}
	off := 0
	t.From = getAddress(buf[off : off+32])
	off += 32
	t.To = getAddress(buf[off : off+32])
	off += 32
	t.TokenId = getTokenID(buf[off : off+8])
	off += 8
	t.Amount = getBalance(buf[off : off+16])
	off += 16
	t.PreRoot = getHash(buf[off : off+32])
	off += 32
	t.PostRoot = getHash(buf[off : off+32])
	off += 32
	t.Nonce_ = getNonce(buf[off : off+8])
	off += 8

	if len(buf) < off+4 {
		return nil, ErrMalformed
	}
	pfLen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	if len(buf) < off+pfLen+4 {
		return nil, ErrMalformed
	}
	pf, err := smt.DecodeProof(buf[off : off+pfLen])
	if err != nil {
		return nil, err
	}
	t.ProofFrom = pf
	off += pfLen

	ptLen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	if len(buf) < off+ptLen+64 {
		return nil, ErrMalformed
	}
	pt, err := smt.DecodeProof(buf[off : off+ptLen])
	if err != nil {
		return nil, err
	}
	t.ProofTo = pt
	off += ptLen

	if len(buf) != off+64 {
		return nil, ErrMalformed
	}
	copy(t.Sig[:], buf[off:off+64])
	return t, nil
}
