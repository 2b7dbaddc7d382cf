package msg

import "github.com/ledgerless/ledgerless/mesh"

// Mint credits amount of token_id to To. For token_id=0 the signer
// must be the treasury address; for any other token the signer must
// equal that token's registered issuer.
type Mint struct {
	Issuer  mesh.Address
	To      mesh.Address
	TokenId mesh.TokenId
	Amount  mesh.Balance
	Nonce_  mesh.Nonce
	Sig     [64]byte
}

func (m *Mint) Kind() Kind            { return KindMint }
func (m *Mint) Signer() mesh.Address  { return m.Issuer }
func (m *Mint) TokenID() mesh.TokenId { return m.TokenId }
func (m *Mint) Nonce() mesh.Nonce     { return m.Nonce_ }
func (m *Mint) Signature() [64]byte   { return m.Sig }

const mintSize = 32 + 32 + 8 + 16 + 8 + 64

func (m *Mint) encode(sig [64]byte) []byte {
	buf := make([]byte, mintSize)
	off := 0
	putAddress(buf[off:off+32], m.Issuer)
	off += 32
	putAddress(buf[off:off+32], m.To)
	off += 32
	putTokenID(buf[off:off+8], m.TokenId)
	off += 8
	putBalance(buf[off:off+16], m.Amount)
	off += 16
	putNonce(buf[off:off+8], m.Nonce_)
	off += 8
	copy(buf[off:off+64], sig[:])
	return buf
}

func (m *Mint) Encode() []byte           { return m.encode(m.Sig) }
func (m *Mint) SigningDigest() mesh.Hash { return mesh.Sum(m.encode([64]byte{})) }

// DecodeMint parses the wire form produced by Encode.
func DecodeMint(buf []byte) (*Mint, error) {
	if len(buf) != mintSize {
		return nil, ErrMalformed
	}
	m := &Mint{}
	off := 0
	m.Issuer = getAddress(buf[off : off+32])
	off += 32
	m.To = getAddress(buf[off : off+32])
	off += 32
	m.TokenId = getTokenID(buf[off : off+8])
	off += 8
	m.Amount = getBalance(buf[off : off+16])
	off += 16
	m.Nonce_ = getNonce(buf[off : off+8])
	off += 8
	copy(m.Sig[:], buf[off:off+64])
	return m, nil
}
