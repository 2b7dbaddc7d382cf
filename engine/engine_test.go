package engine

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msg"
)

func newTestEngine(t *testing.T) *Engine {
	store, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	e, err := New(store)
	require.NoError(t, err)
	return e
}

func signedMint(t *testing.T, e *Engine, priv ed25519.PrivateKey, issuer, to mesh.Address, tokenID mesh.TokenId, amount mesh.Balance) *msg.Mint {
	before, err := e.Accounts().GetAccount(issuer, tokenID)
	require.NoError(t, err)
	m := &msg.Mint{Issuer: issuer, To: to, TokenId: tokenID, Amount: amount, Nonce_: before.Nonce}
	m.Sig = msg.Sign(priv, m)
	return m
}

func TestGenesisThenMint(t *testing.T) {
	e := newTestEngine(t)
	treasuryPub, treasuryPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	treasury := mesh.BytesToAddress(treasuryPub)

	require.NoError(t, e.Genesis(treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))

	holder := mesh.BytesToAddress([]byte{7})
	m := signedMint(t, e, treasuryPriv, treasury, holder, mesh.NativeTokenId, mesh.NewBalance(500))
	_, err = e.Apply(m)
	require.NoError(t, err)

	l, err := e.Accounts().GetAccount(holder, mesh.NativeTokenId)
	require.NoError(t, err)
	assert.Equal(t, "500", l.Balance.String())
}

func TestMintByNonTreasuryRejected(t *testing.T) {
	e := newTestEngine(t)
	treasury := mesh.Treasury
	require.NoError(t, e.Genesis(treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))

	impostorPub, impostorPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	impostor := mesh.BytesToAddress(impostorPub)

	m := &msg.Mint{Issuer: impostor, To: impostor, TokenId: mesh.NativeTokenId, Amount: mesh.NewBalance(1), Nonce_: 0}
	m.Sig = msg.Sign(impostorPriv, m)

	_, err = e.Apply(m)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestApplyRejectsBadSignature(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Genesis(mesh.Treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))

	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	m := &msg.Mint{Issuer: mesh.Treasury, To: mesh.Treasury, TokenId: mesh.NativeTokenId, Amount: mesh.NewBalance(1), Nonce_: 0}
	m.Sig = msg.Sign(otherPriv, m) // signed by the wrong key

	_, err = e.Apply(m)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestPreviewTransferThenApply(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Genesis(mesh.Treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))

	fromPub, fromPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	from := mesh.BytesToAddress(fromPub)
	to := mesh.BytesToAddress([]byte{9})

	preRoot, postRoot, proofFrom, proofTo, nonce, err := e.PreviewTransfer(from, to, mesh.NativeTokenId, mesh.NewBalance(10))
	require.NoError(t, err)

	tr := &msg.Transfer{
		From: from, To: to, TokenId: mesh.NativeTokenId, Amount: mesh.NewBalance(10),
		PreRoot: preRoot, PostRoot: postRoot, Nonce_: nonce,
		ProofFrom: proofFrom, ProofTo: proofTo,
	}
	tr.Sig = msg.Sign(fromPriv, tr)

	// from has zero balance, so applying this transfer must fail closed
	// on insufficient funds rather than silently succeeding.
	_, err = e.Apply(tr)
	assert.Error(t, err)
}

func TestPreviewTransferSucceedsAfterFunding(t *testing.T) {
	e := newTestEngine(t)
	treasuryPub, treasuryPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	treasury := mesh.BytesToAddress(treasuryPub)
	require.NoError(t, e.Genesis(treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))

	fromPub, fromPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	from := mesh.BytesToAddress(fromPub)
	to := mesh.BytesToAddress([]byte{9})

	mint := signedMint(t, e, treasuryPriv, treasury, from, mesh.NativeTokenId, mesh.NewBalance(100))
	_, err = e.Apply(mint)
	require.NoError(t, err)

	preRoot, postRoot, proofFrom, proofTo, nonce, err := e.PreviewTransfer(from, to, mesh.NativeTokenId, mesh.NewBalance(10))
	require.NoError(t, err)

	tr := &msg.Transfer{
		From: from, To: to, TokenId: mesh.NativeTokenId, Amount: mesh.NewBalance(10),
		PreRoot: preRoot, PostRoot: postRoot, Nonce_: nonce,
		ProofFrom: proofFrom, ProofTo: proofTo,
	}
	tr.Sig = msg.Sign(fromPriv, tr)

	_, err = e.Apply(tr)
	require.NoError(t, err)

	fromAfter, err := e.Accounts().GetAccount(from, mesh.NativeTokenId)
	require.NoError(t, err)
	assert.Equal(t, "90", fromAfter.Balance.String())

	toAfter, err := e.Accounts().GetAccount(to, mesh.NativeTokenId)
	require.NoError(t, err)
	assert.Equal(t, "10", toAfter.Balance.String())
}

func TestScoreAdvancesAfterCommit(t *testing.T) {
	e := newTestEngine(t)
	before := e.Score()
	require.NoError(t, e.Genesis(mesh.Treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))
	after := e.Score()
	assert.NotEqual(t, before, after)
}

func TestIssueTokenAssignsNewID(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Genesis(mesh.Treasury, "Mesh|MESH|18", mesh.NewBalance(1_000_000)))

	issuerPub, issuerPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	issuer := mesh.BytesToAddress(issuerPub)

	before, err := e.Accounts().GetAccount(issuer, mesh.NativeTokenId)
	require.NoError(t, err)
	it := &msg.IssueToken{Issuer: issuer, Metadata: "Widget|WDG|6", MaxSupply: mesh.NewBalance(1000), Nonce_: before.Nonce}
	it.Sig = msg.Sign(issuerPriv, it)

	_, err = e.Apply(it)
	require.NoError(t, err)

	info, err := e.Accounts().GetToken(mesh.TokenId(1))
	require.NoError(t, err)
	assert.Equal(t, issuer, info.Issuer)
}
