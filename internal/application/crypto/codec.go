// Package crypto encrypts application payloads at rest. Ciphertext is
// AES-GCM under a key derived from the configured master key, encoded
// as base64(nonce || ciphertext) with a fixed marker prefix so stored
// values are self-describing.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	dErrors "benefit-gateway/pkg/domain-errors"
)

// Prefix marks an encrypted value. Plaintext JSON never starts with it,
// which is what lets the bulk migration skip already-encrypted rows.
const Prefix = "enc:v1:"

const keyInfo = "application-data"

// Codec seals and opens application payloads with a derived AES-256 key.
type Codec struct {
	aead cipher.AEAD
}

// New derives the data key from the base64-encoded master key via
// HKDF-SHA256 and prepares the AEAD.
func New(masterKeyB64 string) (*Codec, error) {
	master, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode master key")
	}
	if len(master) < 16 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "master key too short")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(keyInfo)), key); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "derive data key")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init gcm")
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext and returns the prefixed encoded value.
func (c *Codec) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a prefixed value produced by Encrypt.
func (c *Codec) Decrypt(value string) ([]byte, error) {
	if !IsEncrypted(value) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "value is not encrypted")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode ciphertext")
	}
	if len(raw) < c.aead.NonceSize() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ciphertext too short")
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "open ciphertext")
	}
	return plaintext, nil
}

// IsEncrypted reports whether a stored value carries the marker prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}
