package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountKeyStableAndDistinct(t *testing.T) {
	addr := BytesToAddress([]byte{1, 2, 3})
	k1 := AccountKey(addr, NativeTokenId)
	k2 := AccountKey(addr, NativeTokenId)
	assert.Equal(t, k1, k2)

	k3 := AccountKey(addr, TokenId(1))
	assert.NotEqual(t, k1, k3, "different token ids must produce different leaf keys")

	other := BytesToAddress([]byte{4, 5, 6})
	k4 := AccountKey(other, NativeTokenId)
	assert.NotEqual(t, k1, k4, "different addresses must produce different leaf keys")
}

func TestTokenInfoKeyDistinctFromAccountKey(t *testing.T) {
	addr := BytesToAddress([]byte{1})
	assert.NotEqual(t, AccountKey(addr, NativeTokenId), TokenInfoKey(NativeTokenId))
}

func TestTokenCounterKeyStable(t *testing.T) {
	assert.Equal(t, TokenCounterKey(), TokenCounterKey())
}
