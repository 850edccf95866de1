package fieldcipher

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashield/internal/domain"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)

	for _, plaintext := range []string{
		"123-45-6789",
		"",
		"unicode: héllo wörld",
		"a very long value that spans more than one AES block to make sure chaining works",
	} {
		blob, err := Encrypt(plaintext, key)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, blob)

		got, err := Decrypt(blob, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	key := testKey(t)

	a, err := Encrypt("same input", key)
	require.NoError(t, err)
	b, err := Encrypt("same input", key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "fresh nonce per encryption")
}

func TestDecrypt_WrongKey(t *testing.T) {
	blob, err := Encrypt("secret", testKey(t))
	require.NoError(t, err)

	_, err = Decrypt(blob, testKey(t))
	require.Error(t, err)
	var decErr *domain.DecryptionError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecrypt_MalformedInput(t *testing.T) {
	key := testKey(t)

	for _, blob := range []string{"not base64 at all!!!", "", "YQ=="} {
		_, err := Decrypt(blob, key)
		require.Error(t, err)
		var decErr *domain.DecryptionError
		assert.ErrorAs(t, err, &decErr, "blob %q", blob)
	}
}

func TestDecrypt_TamperedBlob(t *testing.T) {
	key := testKey(t)
	blob, err := Encrypt("secret", key)
	require.NoError(t, err)

	tampered := []byte(blob)
	tampered[len(tampered)-5] ^= 1

	_, err = Decrypt(string(tampered), key)
	require.Error(t, err)
	var decErr *domain.DecryptionError
	assert.ErrorAs(t, err, &decErr)
}

func TestMask_Full(t *testing.T) {
	assert.Equal(t, "***********", Mask("123-45-6789", MaskFull))
	assert.Equal(t, "", Mask("", MaskFull))
	assert.NotContains(t, Mask("abcdef", MaskFull), "a")
}

func TestMask_Partial(t *testing.T) {
	assert.Equal(t, "*******6789", Mask("123-45-6789", MaskPartial))
	assert.Equal(t, "*bcde", Mask("abcde", MaskPartial))

	// Short values are fully masked, never revealed.
	assert.Equal(t, "****", Mask("1234", MaskPartial))
	assert.Equal(t, "*", Mask("x", MaskPartial))
	assert.Equal(t, "", Mask("", MaskPartial))
}

func TestMask_Deterministic(t *testing.T) {
	assert.Equal(t, Mask("555-12-3456", MaskPartial), Mask("555-12-3456", MaskPartial))
}
