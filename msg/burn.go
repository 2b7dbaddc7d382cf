package msg

import "github.com/ledgerless/ledgerless/mesh"

// Burn debits amount of token_id from Holder's balance and decrements
// that token's total supply. Must be signed by Holder.
type Burn struct {
	Holder  mesh.Address
	TokenId mesh.TokenId
	Amount  mesh.Balance
	Nonce_  mesh.Nonce
	Sig     [64]byte
}

func (b *Burn) Kind() Kind            { return KindBurn }
func (b *Burn) Signer() mesh.Address  { return b.Holder }
func (b *Burn) TokenID() mesh.TokenId { return b.TokenId }
func (b *Burn) Nonce() mesh.Nonce     { return b.Nonce_ }
func (b *Burn) Signature() [64]byte   { return b.Sig }

const burnSize = 32 + 8 + 16 + 8 + 64

func (b *Burn) encode(sig [64]byte) []byte {
	buf := make([]byte, burnSize)
	off := 0
	putAddress(buf[off:off+32], b.Holder)
	off += 32
	putTokenID(buf[off:off+8], b.TokenId)
	off += 8
	putBalance(buf[off:off+16], b.Amount)
	off += 16
	putNonce(buf[off:off+8], b.Nonce_)
	off += 8
	copy(buf[off:off+64], sig[:])
	return buf
}

func (b *Burn) Encode() []byte           { return b.encode(b.Sig) }
func (b *Burn) SigningDigest() mesh.Hash { return mesh.Sum(b.encode([64]byte{})) }

// DecodeBurn parses the wire form produced by Encode.
func DecodeBurn(buf []byte) (*Burn, error) {
	if len(buf) != burnSize {
		return nil, ErrMalformed
	}
	b := &Burn{}
	off := 0
	b.Holder = getAddress(buf[off : off+32])
	off += 32
	b.TokenId = getTokenID(buf[off : off+8])
	off += 8
	b.Amount = getBalance(buf[off : off+16])
	off += 16
	b.Nonce_ = getNonce(buf[off : off+8])
	off += 8
	copy(b.Sig[:], buf[off:off+64])
	return b, nil
}
