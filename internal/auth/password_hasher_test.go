package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher()

	hash, salt, err := h.Hash("Sup3rSecret!")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)

	ok, err := h.Verify("Sup3rSecret!", hash, salt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasher_WrongPassword(t *testing.T) {
	h := NewPasswordHasher()

	hash, salt, err := h.Hash("correct-horse")
	require.NoError(t, err)

	ok, err := h.Verify("battery-staple", hash, salt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_SaltFreshness(t *testing.T) {
	h := NewPasswordHasher()

	hash1, salt1, err := h.Hash("same-password")
	require.NoError(t, err)
	hash2, salt2, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}

func TestPasswordHasher_OutputSizes(t *testing.T) {
	h := NewPasswordHasher()

	hash, salt, err := h.Hash("whatever")
	require.NoError(t, err)

	rawHash, err := base64.StdEncoding.DecodeString(hash)
	require.NoError(t, err)
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	require.NoError(t, err)

	assert.Len(t, rawHash, pbkdf2KeySize)
	assert.Len(t, rawSalt, pbkdf2KeySize)
}

func TestPasswordHasher_MalformedStoredValues(t *testing.T) {
	h := NewPasswordHasher()

	hash, salt, err := h.Hash("whatever")
	require.NoError(t, err)

	_, err = h.Verify("whatever", hash, "%%%not-base64%%%")
	assert.Error(t, err)

	_, err = h.Verify("whatever", "%%%not-base64%%%", salt)
	assert.Error(t, err)
}
