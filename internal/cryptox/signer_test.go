package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignMessage_Deterministic(t *testing.T) {
	seed := testKey()
	msg := RetrieveMessage(1700000000)

	assert.Equal(t, SignMessage(msg, seed), SignMessage(msg, seed))
}

func TestSignMessage_TimestampChangesSignature(t *testing.T) {
	seed := testKey()
	assert.NotEqual(t,
		SignMessage(RetrieveMessage(1700000000), seed),
		SignMessage(RetrieveMessage(1700000001), seed))
}

func TestVerifySignature(t *testing.T) {
	seed := testKey()
	msg := SaveMessage("blob", 1700000000)
	sig := SignMessage(msg, seed)

	assert.True(t, VerifySignature(msg, seed, sig))
	assert.False(t, VerifySignature(DeleteMessage(1700000000), seed, sig))
	assert.False(t, VerifySignature(msg, seed, "%%%not-base64%%%"))

	other := testKey()
	other[0] ^= 0xFF
	assert.False(t, VerifySignature(msg, other, sig))
}

func TestPublicIdentity(t *testing.T) {
	seed := testKey()
	sum := sha256.Sum256(seed)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), PublicIdentity(seed))
}

func TestCanonicalMessages(t *testing.T) {
	require.Equal(t, []byte("get_vault1700000000"), RetrieveMessage(1700000000))
	require.Equal(t, []byte("BLOB1700000000"), SaveMessage("BLOB", 1700000000))
	require.Equal(t, []byte("delete_vault1700000000"), DeleteMessage(1700000000))
}
