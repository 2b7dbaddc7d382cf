package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

func newTestBridgeStore(t *testing.T) *Store {
	raw, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	s, err := NewStore(raw)
	require.NoError(t, err)
	return s
}

func newTestProof(t *testing.T) *smt.Proof {
	store, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	tree, err := smt.NewTree(store)
	require.NoError(t, err)
	proof, err := tree.Prove(mesh.AccountKey(mesh.BytesToAddress([]byte{1}), mesh.NativeTokenId))
	require.NoError(t, err)
	return proof
}

func TestMarkProofUsedFirstThenReplay(t *testing.T) {
	s := newTestBridgeStore(t)
	id := mesh.Sum([]byte("receipt-1"))

	used, err := s.MarkProofUsed(id)
	require.NoError(t, err)
	assert.False(t, used)

	used, err = s.MarkProofUsed(id)
	require.NoError(t, err)
	assert.True(t, used, "second mark of the same proof id must report already-used")
}

func TestMarkEventUsedFirstThenReplay(t *testing.T) {
	s := newTestBridgeStore(t)
	extTxHash := mesh.Sum([]byte("ext-tx-1"))

	used, err := s.MarkEventUsed(extTxHash)
	require.NoError(t, err)
	assert.False(t, used)

	used, err = s.MarkEventUsed(extTxHash)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestMarkProofUsedSurvivesReopen(t *testing.T) {
	raw, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	id := mesh.Sum([]byte("receipt-reopen"))
	s1, err := NewStore(raw)
	require.NoError(t, err)
	used, err := s1.MarkProofUsed(id)
	require.NoError(t, err)
	require.False(t, used)

	s2, err := NewStore(raw)
	require.NoError(t, err)
	used, err = s2.MarkProofUsed(id)
	require.NoError(t, err)
	assert.True(t, used, "replay set must reload from the underlying store on reopen")
}

func TestPutGetOperationWithReceipt(t *testing.T) {
	s := newTestBridgeStore(t)
	proof := newTestProof(t)
	receipt := &LockReceipt{
		SrcRoot:   mesh.Sum([]byte("root")),
		Addr:      mesh.BytesToAddress([]byte{7}),
		TokenID:   mesh.NativeTokenId,
		Amount:    mesh.NewBalance(42),
		PathProof: proof,
	}
	now := time.Now().UTC().Truncate(time.Second)
	op := &Operation{
		ID:        mesh.Sum([]byte("op-1")),
		Direction: NativeToExternal,
		State:     Pending,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
		Receipt:   receipt,
	}
	require.NoError(t, s.PutOperation(op))

	got, err := s.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.Direction, got.Direction)
	assert.Equal(t, op.State, got.State)
	assert.True(t, op.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, op.ExpiresAt.Equal(got.ExpiresAt))
	require.NotNil(t, got.Receipt)
	assert.Nil(t, got.Release)
	assert.Equal(t, receipt.SrcRoot, got.Receipt.SrcRoot)
	assert.Equal(t, receipt.Addr, got.Receipt.Addr)
	assert.Equal(t, receipt.TokenID, got.Receipt.TokenID)
	assert.Equal(t, 0, receipt.Amount.Cmp(got.Receipt.Amount))
}

func TestPutGetOperationWithRelease(t *testing.T) {
	s := newTestBridgeStore(t)
	release := &ReleaseRequest{
		ExtTxHash: mesh.Sum([]byte("ext-tx-2")),
		Dst:       mesh.BytesToAddress([]byte{8}),
		TokenID:   mesh.TokenId(3),
		Amount:    mesh.NewBalance(99),
	}
	now := time.Now().UTC().Truncate(time.Second)
	op := &Operation{
		ID:        mesh.Sum([]byte("op-2")),
		Direction: ExternalToNative,
		State:     Proven,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
		Release:   release,
	}
	require.NoError(t, s.PutOperation(op))

	got, err := s.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Receipt)
	require.NotNil(t, got.Release)
	assert.Equal(t, release.ExtTxHash, got.Release.ExtTxHash)
	assert.Equal(t, release.Dst, got.Release.Dst)
	assert.Equal(t, release.TokenID, got.Release.TokenID)
	assert.Equal(t, 0, release.Amount.Cmp(got.Release.Amount))
}

func TestGetOperationUnknownReturnsError(t *testing.T) {
	s := newTestBridgeStore(t)
	_, err := s.GetOperation(mesh.Sum([]byte("nope")))
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestListOperationsEnumeratesAll(t *testing.T) {
	s := newTestBridgeStore(t)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		op := &Operation{
			ID:        mesh.Sum([]byte{byte(i)}),
			Direction: NativeToExternal,
			State:     Pending,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
			Release:   &ReleaseRequest{ExtTxHash: mesh.Sum([]byte{byte(i)}), TokenID: mesh.NativeTokenId, Amount: mesh.NewBalance(1)},
		}
		require.NoError(t, s.PutOperation(op))
	}
	ops, err := s.ListOperations()
	require.NoError(t, err)
	assert.Len(t, ops, 3)
}

func TestDecodeOperationRejectsTruncatedBuffer(t *testing.T) {
	_, err := decodeOperation(mesh.Hash{}, []byte{1, 2})
	assert.ErrorIs(t, err, ErrMalformed)
}
