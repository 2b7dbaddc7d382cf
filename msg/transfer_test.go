package msg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

func newTestTree(t *testing.T) *smt.Tree {
	store, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	tree, err := smt.NewTree(store)
	require.NoError(t, err)
	return tree
}

func TestTransferEncodeDecodeRoundTrip(t *testing.T) {
	tree := newTestTree(t)
	from := mesh.BytesToAddress([]byte{1})
	to := mesh.BytesToAddress([]byte{2})

	proofFrom, err := tree.Prove(mesh.AccountKey(from, mesh.NativeTokenId))
	require.NoError(t, err)
	proofTo, err := tree.Prove(mesh.AccountKey(to, mesh.NativeTokenId))
	require.NoError(t, err)

	priv, signer := newTestKey(t)
	tr := &Transfer{
		From:      signer,
		To:        to,
		TokenId:   mesh.NativeTokenId,
		Amount:    mesh.NewBalance(10),
		PreRoot:   tree.Root(),
		PostRoot:  mesh.Sum([]byte("next")),
		Nonce_:    1,
		ProofFrom: proofFrom,
		ProofTo:   proofTo,
	}
	tr.Sig = Sign(priv, tr)

	decoded, err := DecodeTransfer(tr.Encode())
	require.NoError(t, err)
	assert.Equal(t, tr.From, decoded.From)
	assert.Equal(t, tr.To, decoded.To)
	assert.Equal(t, tr.PreRoot, decoded.PreRoot)
	assert.Equal(t, tr.PostRoot, decoded.PostRoot)
	assert.True(t, VerifySignature(decoded))
}
