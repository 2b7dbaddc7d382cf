package msg

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/mesh"
)

func newTestKey(t *testing.T) (ed25519.PrivateKey, mesh.Address) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv, mesh.BytesToAddress(pub)
}

func TestSignAndVerifyMint(t *testing.T) {
	priv, issuer := newTestKey(t)
	m := &Mint{
		Issuer:  issuer,
		To:      mesh.BytesToAddress([]byte{2}),
		TokenId: mesh.NativeTokenId,
		Amount:  mesh.NewBalance(100),
		Nonce_:  1,
	}
	m.Sig = Sign(priv, m)
	assert.True(t, VerifySignature(m))

	m.Amount = mesh.NewBalance(200)
	assert.False(t, VerifySignature(m), "mutating a signed field must invalidate the signature")
}

func TestMintEncodeDecodeRoundTrip(t *testing.T) {
	priv, issuer := newTestKey(t)
	m := &Mint{
		Issuer:  issuer,
		To:      mesh.BytesToAddress([]byte{2}),
		TokenId: mesh.NativeTokenId,
		Amount:  mesh.NewBalance(100),
		Nonce_:  1,
	}
	m.Sig = Sign(priv, m)

	decoded, err := DecodeMint(m.Encode())
	require.NoError(t, err)
	assert.Equal(t, m.Issuer, decoded.Issuer)
	assert.Equal(t, m.To, decoded.To)
	assert.Equal(t, 0, m.Amount.Cmp(decoded.Amount))
	assert.True(t, VerifySignature(decoded))
}

func TestBurnEncodeDecodeRoundTrip(t *testing.T) {
	priv, holder := newTestKey(t)
	b := &Burn{
		Holder:  holder,
		TokenId: mesh.NativeTokenId,
		Amount:  mesh.NewBalance(50),
		Nonce_:  3,
	}
	b.Sig = Sign(priv, b)

	decoded, err := DecodeBurn(b.Encode())
	require.NoError(t, err)
	assert.Equal(t, b.Holder, decoded.Holder)
	assert.True(t, VerifySignature(decoded))
}

func TestIssueTokenEncodeDecodeRoundTrip(t *testing.T) {
	priv, issuer := newTestKey(t)
	i := &IssueToken{
		Issuer:    issuer,
		Metadata:  "Widget|WDG|6",
		MaxSupply: mesh.NewBalance(1_000_000),
		Nonce_:    1,
	}
	i.Sig = Sign(priv, i)

	decoded, err := DecodeIssueToken(i.Encode())
	require.NoError(t, err)
	assert.Equal(t, i.Metadata, decoded.Metadata)
	assert.Equal(t, mesh.NativeTokenId, decoded.TokenID())
	assert.True(t, VerifySignature(decoded))
}

func TestMsgIDDeterministicPerEncoding(t *testing.T) {
	priv, issuer := newTestKey(t)
	m := &Mint{Issuer: issuer, To: issuer, TokenId: mesh.NativeTokenId, Amount: mesh.NewBalance(1), Nonce_: 1}
	m.Sig = Sign(priv, m)

	id1 := MsgID(m)
	id2 := MsgID(m)
	assert.Equal(t, id1, id2)

	other := &Mint{Issuer: issuer, To: issuer, TokenId: mesh.NativeTokenId, Amount: mesh.NewBalance(2), Nonce_: 1}
	other.Sig = Sign(priv, other)
	assert.NotEqual(t, id1, MsgID(other))
}

func TestDecodeEnvelopeRoundTrip(t *testing.T) {
	priv, issuer := newTestKey(t)
	m := &Mint{Issuer: issuer, To: issuer, TokenId: mesh.NativeTokenId, Amount: mesh.NewBalance(1), Nonce_: 1}
	m.Sig = Sign(priv, m)

	env := Envelope(m)
	decoded, err := DecodeEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, KindMint, decoded.Kind())
}

func TestDecodeEnvelopeUnknownKind(t *testing.T) {
	_, err := DecodeEnvelope([]byte{0xff})
	assert.ErrorIs(t, err, ErrUnknownKind)
}
