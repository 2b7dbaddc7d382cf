package mesh

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressParseRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	for i := range raw {
		raw[i] = byte(i)
	}
	a := BytesToAddress(raw)

	parsed, err := ParseAddress(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	parsed, err = ParseAddress("0x" + a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestParseAddressInvalidLength(t *testing.T) {
	_, err := ParseAddress("ab")
	assert.Error(t, err)
}

func TestTreasuryIsZero(t *testing.T) {
	assert.True(t, Treasury.IsZero())
	nonZero := BytesToAddress([]byte{1})
	assert.False(t, nonZero.IsZero())
}

func TestAddressJSON(t *testing.T) {
	raw := make([]byte, AddressLength)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	a := BytesToAddress(raw)
	buf, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Equal(t, a, decoded)
}

func TestBytesToAddressTruncatesAndExtends(t *testing.T) {
	short := BytesToAddress([]byte{1, 2, 3})
	assert.Equal(t, byte(3), short[AddressLength-1])
	assert.Equal(t, byte(0), short[0])

	long := make([]byte, AddressLength+4)
	for i := range long {
		long[i] = byte(i + 1)
	}
	trunc := BytesToAddress(long)
	assert.Equal(t, long[4:], trunc.Bytes())
}
