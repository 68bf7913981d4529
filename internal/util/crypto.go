package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	keyLength    = 32 // AES-256
	gcmNonceSize = 16
	gcmTagSize   = 16

	// fixed salt: the database must stay readable across restarts with
	// only the configured passphrase
	kdfSalt = "essar-billing-salt"

	// bound to every ciphertext as additional authenticated data
	aadContext = "essar-billing"
)

// FieldCipher encrypts and decrypts individual PII fields at the
// persistence boundary. Stored format is hex(nonce) + hex(tag) +
// hex(ciphertext), so a stored string is self-contained.
//
// Both directions fail open: a field that cannot be encrypted is stored
// as given, and a field that cannot be decrypted (tamper, wrong key,
// legacy plaintext row) is returned as-is so the UI can still render
// something.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher derives an AES-256 key from the passphrase via scrypt
// and builds the GCM codec once at startup.
func NewFieldCipher(passphrase string) (*FieldCipher, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("encryption passphrase is empty")
	}

	key, err := scrypt.Key([]byte(passphrase), []byte(kdfSalt), 1<<15, 8, 1, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &FieldCipher{aead: aead}, nil
}

// Encrypt returns the hex-encoded ciphertext for plain, or plain itself
// when it is blank. Each call draws a fresh random nonce.
func (c *FieldCipher) Encrypt(plain string) string {
	if strings.TrimSpace(plain) == "" {
		return plain
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return plain
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plain), []byte(aadContext))
	// Seal appends the tag; the stored layout wants nonce, tag, data
	ct := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return hex.EncodeToString(nonce) + hex.EncodeToString(tag) + hex.EncodeToString(ct)
}

// Decrypt reverses Encrypt. Blank input, values that don't look like
// ciphertext, and undecryptable values all come back unchanged.
func (c *FieldCipher) Decrypt(stored string) string {
	if strings.TrimSpace(stored) == "" {
		return stored
	}
	if !LooksEncrypted(stored) {
		return stored
	}

	raw, err := hex.DecodeString(stored)
	if err != nil {
		return stored
	}

	nonce := raw[:gcmNonceSize]
	tag := raw[gcmNonceSize : gcmNonceSize+gcmTagSize]
	ct := raw[gcmNonceSize+gcmTagSize:]

	plain, err := c.aead.Open(nil, nonce, append(ct, tag...), []byte(aadContext))
	if err != nil {
		return stored
	}
	return string(plain)
}

// LooksEncrypted heuristically distinguishes ciphertext from plaintext:
// long enough to hold nonce + tag + some data, even length, pure
// lowercase hex. Lets pre-encryption legacy rows read back unharmed.
func LooksEncrypted(s string) bool {
	minLength := (gcmNonceSize+gcmTagSize)*2 + 10
	if len(s) < minLength || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
