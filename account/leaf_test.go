package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/mesh"
)

func TestLeafEncodeDecodeRoundTrip(t *testing.T) {
	l := Leaf{
		Address: mesh.BytesToAddress([]byte{1, 2, 3}),
		TokenID: TokenID(7),
		Balance: mesh.NewBalance(12345),
		Nonce:   mesh.Nonce(9),
	}
	buf := l.Encode()
	assert.Len(t, buf, LeafSize)

	decoded, err := DecodeLeaf(buf)
	require.NoError(t, err)
	assert.Equal(t, l.Address, decoded.Address)
	assert.Equal(t, l.TokenID, decoded.TokenID)
	assert.Equal(t, 0, l.Balance.Cmp(decoded.Balance))
	assert.Equal(t, l.Nonce, decoded.Nonce)
}

func TestDecodeLeafRejectsWrongSize(t *testing.T) {
	_, err := DecodeLeaf([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedLeaf)
}

func TestLeafKeyMatchesAccountKey(t *testing.T) {
	addr := mesh.BytesToAddress([]byte{9})
	l := EmptyLeaf(addr, mesh.TokenId(3))
	assert.Equal(t, mesh.AccountKey(addr, mesh.TokenId(3)), l.Key())
}
