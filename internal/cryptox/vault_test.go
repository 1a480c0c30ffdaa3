package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upass-project/upass/internal/common"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestVaultCipher_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("[]"),
		[]byte(`[{"note":"mail","username":"alice","password":"s3cret"}]`),
		{},
	}
	key := testKey()

	for _, plaintext := range payloads {
		blob, err := EncryptVault(plaintext, key)
		require.NoError(t, err)

		got, err := DecryptVault(blob, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestVaultCipher_FreshIVPerCall(t *testing.T) {
	key := testKey()
	blob1, err := EncryptVault([]byte("[]"), key)
	require.NoError(t, err)
	blob2, err := EncryptVault([]byte("[]"), key)
	require.NoError(t, err)
	assert.NotEqual(t, blob1, blob2)
}

func TestVaultCipher_TamperDetection(t *testing.T) {
	key := testKey()
	blob, err := EncryptVault([]byte(`[{"note":"mail"}]`), key)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// Flipping a bit anywhere in IV, ciphertext or tag must fail the open.
	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		_, err := DecryptVault(base64.StdEncoding.EncodeToString(tampered), key)
		assert.ErrorIs(t, err, common.ErrAuthenticationFailed, "byte %d", i)
	}
}

func TestVaultCipher_WrongKey(t *testing.T) {
	blob, err := EncryptVault([]byte("[]"), testKey())
	require.NoError(t, err)

	wrong := testKey()
	wrong[0] ^= 0xFF
	_, err = DecryptVault(blob, wrong)
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
}

func TestVaultCipher_MalformedBlob(t *testing.T) {
	key := testKey()

	_, err := DecryptVault("not base64 !!!", key)
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)

	short := base64.StdEncoding.EncodeToString([]byte("tooshort"))
	_, err = DecryptVault(short, key)
	assert.ErrorIs(t, err, common.ErrAuthenticationFailed)
}
