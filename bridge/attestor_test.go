package bridge

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/mesh"
)

func TestSingleKeyAttestorVerifiesOwnAttestation(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	a := NewSingleKeyAttestor(priv)

	root := mesh.Sum([]byte("root"))
	att, err := a.AttestRoot(root)
	require.NoError(t, err)
	assert.True(t, a.VerifyAttestation(root, att))
	assert.False(t, a.VerifyAttestation(mesh.Sum([]byte("other root")), att))
}

func TestThresholdAttestorRequiresMinimumSigners(t *testing.T) {
	var signers []ed25519.PrivateKey
	for i := 0; i < 3; i++ {
		_, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		signers = append(signers, priv)
	}
	a := NewThresholdAttestor(signers, 2)

	root := mesh.Sum([]byte("root"))
	att, err := a.AttestRoot(root)
	require.NoError(t, err)
	assert.True(t, a.VerifyAttestation(root, att))

	short := NewThresholdAttestor(signers[:1], 2)
	attShort, err := short.AttestRoot(root)
	require.NoError(t, err)
	assert.False(t, a.VerifyAttestation(root, attShort), "only one of two required signatures present")
}
