// Package cryptobox wraps the asymmetric primitives behind the wallet's usage
// contract: who encrypts to whom, with which keys. Keys are secp256k1 and
// travel as hex strings, the same representation the scanned payloads and the
// persisted account record use.
//
// Ciphertexts are authenticated in both directions: the sender's compressed
// public key rides in the header, the payload is sealed with a secretbox key
// derived from the static-static ECDH secret, so only the addressed recipient
// can open it and opening it proves the sender held the named key.
package cryptobox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/sha3"
)

// ErrDecryptionFailed reports a ciphertext that was not addressed to this key
// or has been corrupted. Callers treat it as "no data available".
var ErrDecryptionFailed = errors.New("decryption failed")

const (
	pubKeyLen = 33 // compressed secp256k1 point
	nonceLen  = 24
)

// GeneratePrivateKey returns a fresh secp256k1 private key as hex.
func GeneratePrivateKey() (string, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate private key: %w", err)
	}
	return hex.EncodeToString(priv.Serialize()), nil
}

// DerivePublicKey returns the compressed public key, hex encoded. Pure and
// deterministic.
func DerivePublicKey(privHex string) (string, error) {
	priv, err := parsePrivate(privHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(priv.PubKey().SerializeCompressed()), nil
}

// DeriveAddress returns the Ethereum-style account address for the key:
// keccak256 of the uncompressed public point, last 20 bytes, 0x-prefixed.
func DeriveAddress(privHex string) (string, error) {
	priv, err := parsePrivate(privHex)
	if err != nil {
		return "", err
	}
	uncompressed := priv.PubKey().SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:]) // drop the 0x04 point prefix
	digest := h.Sum(nil)

	return "0x" + hex.EncodeToString(digest[12:]), nil
}

// Encrypt seals plaintext for the recipient, authenticated by the sender's
// key. Layout: senderPub(33) || nonce(24) || box.
//
// The nonce is derived from the shared key and the plaintext (SIV style), so
// encryption is deterministic: sealing the same persona twice yields the same
// ciphertext. That keeps republishing unchanged data at the same content
// address, which is what lets the save path skip the paid registry write. The
// only leak is equality of plaintexts under one key pair.
func Encrypt(recipientPubHex, senderPrivHex string, plaintext []byte) ([]byte, error) {
	senderPriv, err := parsePrivate(senderPrivHex)
	if err != nil {
		return nil, err
	}
	recipientPub, err := parsePublic(recipientPubHex)
	if err != nil {
		return nil, err
	}

	key := sharedKey(senderPriv, recipientPub)
	nonce := deriveNonce(key, plaintext)

	out := make([]byte, 0, pubKeyLen+nonceLen+len(plaintext)+secretbox.Overhead)
	out = append(out, senderPriv.PubKey().SerializeCompressed()...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, &key), nil
}

// Decrypt opens a ciphertext addressed to ownPrivHex.
func Decrypt(ownPrivHex string, ciphertext []byte) ([]byte, error) {
	priv, err := parsePrivate(ownPrivHex)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < pubKeyLen+nonceLen+secretbox.Overhead {
		return nil, ErrDecryptionFailed
	}

	senderPub, err := btcec.ParsePubKey(ciphertext[:pubKeyLen])
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	var nonce [nonceLen]byte
	copy(nonce[:], ciphertext[pubKeyLen:pubKeyLen+nonceLen])

	key := sharedKey(priv, senderPub)

	plaintext, ok := secretbox.Open(nil, ciphertext[pubKeyLen+nonceLen:], &nonce, &key)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// SignDigest produces a DER-encoded ECDSA signature over a 32-byte digest.
// Used by the ledger client to sign claim writes.
func SignDigest(privHex string, digest []byte) ([]byte, error) {
	priv, err := parsePrivate(privHex)
	if err != nil {
		return nil, err
	}
	sig := btcecdsa.Sign(priv, digest)
	return sig.Serialize(), nil
}

// Keccak256 hashes data with the legacy keccak variant used on-chain.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

func sharedKey(priv *btcec.PrivateKey, pub *btcec.PublicKey) [32]byte {
	return sha256.Sum256(btcec.GenerateSharedSecret(priv, pub))
}

func deriveNonce(key [32]byte, plaintext []byte) [nonceLen]byte {
	h := sha256.New()
	h.Write(key[:])
	h.Write(plaintext)
	var nonce [nonceLen]byte
	copy(nonce[:], h.Sum(nil))
	return nonce
}

func parsePrivate(privHex string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(privHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("invalid private key")
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

func parsePublic(pubHex string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, fmt.Errorf("invalid public key")
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return pub, nil
}
