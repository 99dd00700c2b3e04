package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvTokenStoreMissingFile(t *testing.T) {
	store := NewEnvTokenStore(filepath.Join(t.TempDir(), ".env"), "PLEXA_TOKEN")

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestEnvTokenStoreSaveAndLoad(t *testing.T) {
	store := NewEnvTokenStore(filepath.Join(t.TempDir(), ".env"), "PLEXA_TOKEN")

	require.NoError(t, store.Save("abc123"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	// Overwrite replaces the value in place.
	require.NoError(t, store.Save("def456"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "def456", token)
}

func TestEnvTokenStoreSaveIntoEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	store := NewEnvTokenStore(path, "PLEXA_TOKEN")
	require.NoError(t, store.Save("abc123"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PLEXA_TOKEN=abc123\n", string(data))
}

func TestEnvTokenStorePreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path,
		[]byte("PLEXA_EMAIL=user@example.com\nPLEXA_SENHA=s3cret\n"), 0o600))

	store := NewEnvTokenStore(path, "PLEXA_TOKEN")
	require.NoError(t, store.Save("abc123"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PLEXA_EMAIL=user@example.com")
	assert.Contains(t, string(data), "PLEXA_SENHA=s3cret")
	assert.Contains(t, string(data), "PLEXA_TOKEN=abc123")
}
