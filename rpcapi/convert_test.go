package rpcapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSigAcceptsHexWithAndWithoutPrefix(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i)
	}
	hexNoPrefix := hexString(raw)

	sig, err := parseSig(hexNoPrefix)
	require.NoError(t, err)
	assert.Equal(t, raw, sig[:])

	sig2, err := parseSig("0x" + hexNoPrefix)
	require.NoError(t, err)
	assert.Equal(t, raw, sig2[:])
}

func TestParseSigRejectsWrongLength(t *testing.T) {
	_, err := parseSig("0xabcd")
	assert.ErrorIs(t, err, errBadSignature)
}

func TestParseSigRejectsNonHex(t *testing.T) {
	_, err := parseSig("not-hex-zz")
	assert.ErrorIs(t, err, errBadSignature)
}

func TestHexBytesRoundTrip(t *testing.T) {
	b, err := hexBytes("0x" + hexString([]byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestDecodeHexMessageRejectsGarbage(t *testing.T) {
	_, err := decodeHexMessage("0xff")
	assert.Error(t, err)
}
