package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelStorePutGet(t *testing.T) {
	s, err := OpenMemLevelDB()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	has, err := s.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	_, err = s.Get([]byte("missing"))
	assert.True(t, s.IsNotFound(err))
}

func TestBucketNamespacesKeys(t *testing.T) {
	s, err := OpenMemLevelDB()
	require.NoError(t, err)
	defer s.Close()

	a := Bucket(s, "a/")
	b := Bucket(s, "b/")
	require.NoError(t, a.Put([]byte("x"), []byte("1")))
	require.NoError(t, b.Put([]byte("x"), []byte("2")))

	av, err := a.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), av)

	bv, err := b.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), bv)
}

func TestBatchWrite(t *testing.T) {
	s, err := OpenMemLevelDB()
	require.NoError(t, err)
	defer s.Close()

	batch := s.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	assert.Equal(t, 2, batch.Len())
	require.NoError(t, batch.Write())

	v, err := s.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestSnapshotIsolatedFromLaterWrites(t *testing.T) {
	s, err := OpenMemLevelDB()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put([]byte("k"), []byte("old")))
	snap := s.Snapshot()
	defer snap.Release()

	require.NoError(t, s.Put([]byte("k"), []byte("new")))

	v, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), v)
}
