package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateP2PKeyPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "p2p.key")

	key1, err := loadOrGenerateP2PKey(file)
	require.NoError(t, err)

	key2, err := loadOrGenerateP2PKey(file)
	require.NoError(t, err)
	assert.Equal(t, key1.D, key2.D, "second call must load the same key rather than generating a new one")
}

func TestLoadOrGenerateSigningKeyPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "signing.key")

	priv1, err := loadOrGenerateSigningKey(file)
	require.NoError(t, err)

	priv2, err := loadOrGenerateSigningKey(file)
	require.NoError(t, err)
	assert.Equal(t, priv1, priv2)
}

func TestLoadOrGenerateSigningKeyDifferentFilesDifferentKeys(t *testing.T) {
	dir := t.TempDir()
	priv1, err := loadOrGenerateSigningKey(filepath.Join(dir, "a.key"))
	require.NoError(t, err)
	priv2, err := loadOrGenerateSigningKey(filepath.Join(dir, "b.key"))
	require.NoError(t, err)
	assert.NotEqual(t, priv1, priv2)
}
