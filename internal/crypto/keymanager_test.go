package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptSecret("my-api-secret", "correct horse battery staple")
	require.NoError(t, err)

	plain, err := DecryptSecret(blob, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, "my-api-secret", plain)
}

func TestEncryptSecretValidation(t *testing.T) {
	_, err := EncryptSecret("", "password")
	assert.Error(t, err)

	_, err = EncryptSecret("secret", "")
	assert.Error(t, err)
}

func TestDecryptWrongPasswordFails(t *testing.T) {
	blob, err := EncryptSecret("my-api-secret", "right")
	require.NoError(t, err)

	_, err = DecryptSecret(blob, "wrong")
	assert.Error(t, err)
}

func TestDecryptRejectsBadInput(t *testing.T) {
	_, err := DecryptSecret([]byte("{not json"), "pw")
	assert.Error(t, err)

	_, err = DecryptSecret([]byte(`{"version":2,"salt":"","nonce":"","ciphertext":""}`), "pw")
	assert.ErrorContains(t, err, "unsupported version")

	blob, err := EncryptSecret("secret", "pw")
	require.NoError(t, err)
	_, err = DecryptSecret(blob, "")
	assert.Error(t, err)
}

func TestEncryptUsesFreshSaltAndNonce(t *testing.T) {
	a, err := EncryptSecret("secret", "pw")
	require.NoError(t, err)
	b, err := EncryptSecret("secret", "pw")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLoadSecretPrefersRawSecret(t *testing.T) {
	got, err := LoadSecret(SecretConfig{
		RawSecret:           "raw-wins",
		EncryptedSecretPath: "/nonexistent/secret.json",
		Password:            "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "raw-wins", got)
}

func TestLoadSecretFromEncryptedFile(t *testing.T) {
	blob, err := EncryptSecret("file-secret", "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadSecret(SecretConfig{EncryptedSecretPath: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "file-secret", got)

	_, err = LoadSecret(SecretConfig{EncryptedSecretPath: path, Password: "bad"})
	assert.Error(t, err)
}

func TestLoadSecretMissingFile(t *testing.T) {
	_, err := LoadSecret(SecretConfig{EncryptedSecretPath: "/nonexistent/secret.json", Password: "pw"})
	assert.Error(t, err)
}

func TestLoadSecretEmptyConfig(t *testing.T) {
	got, err := LoadSecret(SecretConfig{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
