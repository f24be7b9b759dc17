package cryptobox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) string {
	t.Helper()
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)
	return priv
}

func TestDeriveIsDeterministic(t *testing.T) {
	priv := newKey(t)

	pub1, err := DerivePublicKey(priv)
	require.NoError(t, err)
	pub2, err := DerivePublicKey(priv)
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)
	assert.Len(t, pub1, 66, "compressed secp256k1 point, hex encoded")

	addr1, err := DeriveAddress(priv)
	require.NoError(t, err)
	addr2, err := DeriveAddress(priv)
	require.NoError(t, err)
	assert.Equal(t, addr1, addr2)
	assert.Len(t, addr1, 42)
	assert.Equal(t, "0x", addr1[:2])
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	senderPriv := newKey(t)
	recipientPriv := newKey(t)
	recipientPub, err := DerivePublicKey(recipientPriv)
	require.NoError(t, err)

	plaintext := []byte(`{"name":"Alice","city":"Berlin"}`)

	ciphertext, err := Encrypt(recipientPub, senderPriv, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "Alice")

	decrypted, err := Decrypt(recipientPriv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptToSelf(t *testing.T) {
	priv := newKey(t)
	pub, err := DerivePublicKey(priv)
	require.NoError(t, err)

	ciphertext, err := Encrypt(pub, priv, []byte("persona"))
	require.NoError(t, err)

	decrypted, err := Decrypt(priv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("persona"), decrypted)
}

func TestEncryptIsDeterministic(t *testing.T) {
	priv := newKey(t)
	pub, err := DerivePublicKey(priv)
	require.NoError(t, err)

	a, err := Encrypt(pub, priv, []byte("persona"))
	require.NoError(t, err)
	b, err := Encrypt(pub, priv, []byte("persona"))
	require.NoError(t, err)
	assert.Equal(t, a, b, "same plaintext and keys must seal to the same bytes")

	c, err := Encrypt(pub, priv, []byte("persona v2"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDecryptWrongRecipient(t *testing.T) {
	senderPriv := newKey(t)
	recipientPriv := newKey(t)
	bystanderPriv := newKey(t)
	recipientPub, err := DerivePublicKey(recipientPriv)
	require.NoError(t, err)

	ciphertext, err := Encrypt(recipientPub, senderPriv, []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(bystanderPriv, ciphertext)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptCorruptCiphertext(t *testing.T) {
	priv := newKey(t)
	pub, err := DerivePublicKey(priv)
	require.NoError(t, err)

	ciphertext, err := Encrypt(pub, priv, []byte("secret"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, err = Decrypt(priv, ciphertext)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Decrypt(priv, []byte("short"))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestSignDigest(t *testing.T) {
	priv := newKey(t)
	digest := Keccak256([]byte("claim"))

	sig, err := SignDigest(priv, digest)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}
