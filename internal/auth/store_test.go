package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempCredentials(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	t.Setenv(PathEnvVar, path)
	return path
}

func TestLoadMissingFile(t *testing.T) {
	useTempCredentials(t)

	creds, err := Load()
	require.NoError(t, err)
	assert.Empty(t, creds.APIKey("google"))
	assert.Empty(t, GetAPIKey("google"))
}

func TestStoreAndGetAPIKey(t *testing.T) {
	path := useTempCredentials(t)

	require.NoError(t, StoreAPIKey("google", "g-key"))
	require.NoError(t, StoreAPIKey("openai", "o-key"))

	assert.Equal(t, "g-key", GetAPIKey("google"))
	assert.Equal(t, "o-key", GetAPIKey("openai"))
	assert.Empty(t, GetAPIKey("ollama"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, StoreAPIKey("google", ""))
	assert.Empty(t, GetAPIKey("google"))
	assert.Equal(t, "o-key", GetAPIKey("openai"))
}

func TestCorruptFile(t *testing.T) {
	path := useTempCredentials(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))

	_, err := Load()
	assert.Error(t, err)
	assert.Empty(t, GetAPIKey("google"))
}

func TestNilCredentials(t *testing.T) {
	var creds *Credentials
	assert.Empty(t, creds.APIKey("google"))
}
