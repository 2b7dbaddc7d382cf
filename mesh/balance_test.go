package mesh

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceAddSub(t *testing.T) {
	a := NewBalance(10)
	b := NewBalance(3)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "13", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "7", diff.String())

	_, err = b.Sub(a)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
}

func TestBalanceAddOverflow(t *testing.T) {
	max, err := BalanceFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128))
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, Balance{}, max)

	top := NewBalance(1)
	nearMax, err := BalanceFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)))
	require.NoError(t, err)
	_, err = nearMax.Add(top)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
}

func TestBalanceBytes16RoundTrip(t *testing.T) {
	orig := NewBalance(123456789)
	b := orig.Bytes16()
	got := BalanceFromBytes16(b)
	assert.Equal(t, 0, orig.Cmp(got))
}

func TestBalanceFromBigInt(t *testing.T) {
	bal, err := BalanceFromBigInt(big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, "42", bal.String())

	_, err = BalanceFromBigInt(big.NewInt(-1))
	assert.Error(t, err)
}

func TestBalanceJSON(t *testing.T) {
	bal := NewBalance(9999999999)
	buf, err := json.Marshal(bal)
	require.NoError(t, err)
	assert.Equal(t, `"9999999999"`, string(buf))

	var decoded Balance
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Equal(t, 0, bal.Cmp(decoded))

	assert.Error(t, json.Unmarshal([]byte(`"-5"`), &decoded))
}

func TestZeroBalance(t *testing.T) {
	assert.True(t, ZeroBalance.IsZero())
	assert.False(t, NewBalance(1).IsZero())
	assert.True(t, NewBalance(1).LessThan(NewBalance(2)))
}
