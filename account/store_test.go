package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

func newTestStore(t *testing.T) *Store {
	raw, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	tree, err := smt.NewTree(raw)
	require.NoError(t, err)
	return NewStore(tree, raw)
}

func TestGetAccountAbsentReadsAsEmpty(t *testing.T) {
	s := newTestStore(t)
	addr := mesh.BytesToAddress([]byte{1})

	l, err := s.GetAccount(addr, mesh.NativeTokenId)
	require.NoError(t, err)
	assert.True(t, l.Balance.IsZero())
	assert.Equal(t, mesh.Nonce(0), l.Nonce)
}

func TestApplyDeltaCreditThenDebit(t *testing.T) {
	s := newTestStore(t)
	tree := s.tree
	addr := mesh.BytesToAddress([]byte{1})

	u := tree.NewUpdate()
	_, err := s.ApplyDelta(u, addr, mesh.NativeTokenId, mesh.NewBalance(100), true, 1)
	require.NoError(t, err)
	_, err = u.Commit()
	require.NoError(t, err)

	l, err := s.GetAccount(addr, mesh.NativeTokenId)
	require.NoError(t, err)
	assert.Equal(t, "100", l.Balance.String())

	u2 := tree.NewUpdate()
	_, err = s.ApplyDelta(u2, addr, mesh.NativeTokenId, mesh.NewBalance(40), false, 2)
	require.NoError(t, err)
	_, err = u2.Commit()
	require.NoError(t, err)

	l, err = s.GetAccount(addr, mesh.NativeTokenId)
	require.NoError(t, err)
	assert.Equal(t, "60", l.Balance.String())
	assert.Equal(t, mesh.Nonce(2), l.Nonce)
}

func TestApplyDeltaDebitUnderflowFails(t *testing.T) {
	s := newTestStore(t)
	addr := mesh.BytesToAddress([]byte{1})

	u := s.tree.NewUpdate()
	_, err := s.ApplyDelta(u, addr, mesh.NativeTokenId, mesh.NewBalance(1), false, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestGenesisAndUpdateSupply(t *testing.T) {
	s := newTestStore(t)
	treasury := mesh.BytesToAddress([]byte{0xff})

	u := s.tree.NewUpdate()
	_, err := s.Genesis(u, treasury, "Mesh|MESH|18", mesh.NewBalance(1000))
	require.NoError(t, err)
	_, err = u.Commit()
	require.NoError(t, err)

	info, err := s.GetToken(mesh.NativeTokenId)
	require.NoError(t, err)
	assert.Equal(t, "Mesh|MESH|18", info.Metadata)
	assert.True(t, info.TotalSupply.IsZero())

	u2 := s.tree.NewUpdate()
	_, err = s.UpdateSupply(u2, mesh.NativeTokenId, mesh.NewBalance(500), true)
	require.NoError(t, err)
	_, err = u2.Commit()
	require.NoError(t, err)

	info, err = s.GetToken(mesh.NativeTokenId)
	require.NoError(t, err)
	assert.Equal(t, "500", info.TotalSupply.String())
}

func TestUpdateSupplyRejectsExceedingMaxSupply(t *testing.T) {
	s := newTestStore(t)
	treasury := mesh.BytesToAddress([]byte{0xff})

	u := s.tree.NewUpdate()
	_, err := s.Genesis(u, treasury, "Mesh|MESH|18", mesh.NewBalance(100))
	require.NoError(t, err)
	_, err = u.Commit()
	require.NoError(t, err)

	u2 := s.tree.NewUpdate()
	_, err = s.UpdateSupply(u2, mesh.NativeTokenId, mesh.NewBalance(200), true)
	assert.ErrorIs(t, err, ErrSupplyExceeded)
}

func TestRegisterTokenAssignsSequentialIds(t *testing.T) {
	s := newTestStore(t)
	issuer := mesh.BytesToAddress([]byte{1})

	u := s.tree.NewUpdate()
	first, err := s.RegisterToken(u, issuer, "First|FST|8", mesh.NewBalance(1000))
	require.NoError(t, err)
	second, err := s.RegisterToken(u, issuer, "Second|SEC|8", mesh.NewBalance(1000))
	require.NoError(t, err)
	_, err = u.Commit()
	require.NoError(t, err)

	assert.Equal(t, TokenID(1), first.TokenID)
	assert.Equal(t, TokenID(2), second.TokenID)
}

func TestListTokensEnumeratesRegistry(t *testing.T) {
	s := newTestStore(t)
	treasury := mesh.BytesToAddress([]byte{0xff})
	issuer := mesh.BytesToAddress([]byte{1})

	u := s.tree.NewUpdate()
	_, err := s.Genesis(u, treasury, "Mesh|MESH|18", mesh.NewBalance(1000))
	require.NoError(t, err)
	_, err = s.RegisterToken(u, issuer, "Other|OTH|8", mesh.NewBalance(1000))
	require.NoError(t, err)
	_, err = u.Commit()
	require.NoError(t, err)

	tokens, err := s.ListTokens()
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestGetTokenUnknownReturnsError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetToken(mesh.TokenId(99))
	assert.ErrorIs(t, err, ErrUnknownToken)
}
