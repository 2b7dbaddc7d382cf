package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
)

func newTestTree(t *testing.T) *Tree {
	store, err := kvstore.OpenMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	tree, err := NewTree(store)
	require.NoError(t, err)
	return tree
}

func TestEmptyTreeHasEmptyRoot(t *testing.T) {
	tree := newTestTree(t)
	assert.Equal(t, EmptyRoot(), tree.Root())
	assert.Equal(t, uint64(0), tree.Version())
}

func TestPutCommitChangesRoot(t *testing.T) {
	tree := newTestTree(t)
	key := mesh.Sum([]byte("a"))

	u := tree.NewUpdate()
	require.NoError(t, u.Put(key, []byte("value")))
	root, err := u.Commit()
	require.NoError(t, err)

	assert.NotEqual(t, EmptyRoot(), root)
	assert.Equal(t, root, tree.Root())
	assert.Equal(t, uint64(1), tree.Version())

	v, ok, err := tree.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value"), v)
}

func TestDeleteRestoresEmptyRoot(t *testing.T) {
	tree := newTestTree(t)
	key := mesh.Sum([]byte("a"))

	u := tree.NewUpdate()
	require.NoError(t, u.Put(key, []byte("value")))
	_, err := u.Commit()
	require.NoError(t, err)

	u2 := tree.NewUpdate()
	require.NoError(t, u2.Delete(key))
	root, err := u2.Commit()
	require.NoError(t, err)

	assert.Equal(t, EmptyRoot(), root)
	_, ok, err := tree.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateSeesItsOwnStagedWrites(t *testing.T) {
	tree := newTestTree(t)
	key := mesh.Sum([]byte("a"))

	u := tree.NewUpdate()
	require.NoError(t, u.Put(key, []byte("first")))
	v, ok, err := u.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), v)

	require.NoError(t, u.Put(key, []byte("second")))
	v, ok, err = u.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), v)
}

func TestProveAndVerifyMembership(t *testing.T) {
	tree := newTestTree(t)
	key := mesh.Sum([]byte("leaf-key"))
	value := []byte("leaf-value")

	u := tree.NewUpdate()
	require.NoError(t, u.Put(key, value))
	root, err := u.Commit()
	require.NoError(t, err)

	proof, err := tree.Prove(key)
	require.NoError(t, err)
	assert.True(t, Verify(proof, root))
	assert.True(t, VerifyForKey(proof, key, root))
	assert.True(t, VerifyLeafValue(proof, key, value, root))
	assert.False(t, proof.IsAbsence())
}

func TestProveAbsence(t *testing.T) {
	tree := newTestTree(t)
	present := mesh.Sum([]byte("present"))
	absent := mesh.Sum([]byte("absent"))

	u := tree.NewUpdate()
	require.NoError(t, u.Put(present, []byte("v")))
	root, err := u.Commit()
	require.NoError(t, err)

	proof, err := tree.Prove(absent)
	require.NoError(t, err)
	assert.True(t, proof.IsAbsence())
	assert.True(t, Verify(proof, root))
}

func TestProofEncodeDecodeRoundTrip(t *testing.T) {
	tree := newTestTree(t)
	key := mesh.Sum([]byte("k"))

	u := tree.NewUpdate()
	require.NoError(t, u.Put(key, []byte("v")))
	root, err := u.Commit()
	require.NoError(t, err)

	proof, err := tree.Prove(key)
	require.NoError(t, err)

	buf := proof.Encode()
	decoded, err := DecodeProof(buf)
	require.NoError(t, err)
	assert.True(t, VerifyLeafValue(decoded, key, []byte("v"), root))
}

func TestVerifyRejectsWrongValue(t *testing.T) {
	tree := newTestTree(t)
	key := mesh.Sum([]byte("k"))

	u := tree.NewUpdate()
	require.NoError(t, u.Put(key, []byte("correct")))
	root, err := u.Commit()
	require.NoError(t, err)

	proof, err := tree.Prove(key)
	require.NoError(t, err)
	assert.False(t, VerifyLeafValue(proof, key, []byte("wrong"), root))
}

func TestRangeLeavesOrdersByKey(t *testing.T) {
	tree := newTestTree(t)
	keys := []mesh.Hash{mesh.Sum([]byte("a")), mesh.Sum([]byte("b")), mesh.Sum([]byte("c"))}

	u := tree.NewUpdate()
	for _, k := range keys {
		require.NoError(t, u.Put(k, []byte("v")))
	}
	_, err := u.Commit()
	require.NoError(t, err)

	entries, err := tree.RangeLeaves(mesh.Hash{}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Key.String() < entries[i].Key.String())
	}
}

func TestRangeLeavesRespectsLimit(t *testing.T) {
	tree := newTestTree(t)
	u := tree.NewUpdate()
	for i := 0; i < 5; i++ {
		require.NoError(t, u.Put(mesh.Sum([]byte{byte(i)}), []byte("v")))
	}
	_, err := u.Commit()
	require.NoError(t, err)

	entries, err := tree.RangeLeaves(mesh.Hash{}, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
