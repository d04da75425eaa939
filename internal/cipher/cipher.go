// Package cipher encrypts individual roster fields at rest and derives the
// deterministic lookup hashes used to match records without decrypting them.
package cipher

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"fraternitybase/registry/internal/constants"

	"golang.org/x/crypto/chacha20poly1305"
)

const envelopeVersion byte = 1

// FieldCipher is the contract the importer and exporter depend on.
type FieldCipher interface {
	// Encrypt returns nil ciphertext for an empty value.
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(ciphertext []byte) (string, error)
	// LookupHash returns nil for a value that is empty after normalisation.
	LookupHash(value string) *string
}

// DecryptionError reports a ciphertext that could not be opened. It matches
// constants.ErrDecryption under errors.Is.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("%s: %s", constants.ErrDecryption.Error(), e.Reason)
}

func (e *DecryptionError) Is(target error) bool {
	return target == constants.ErrDecryption
}

// Cipher is the XChaCha20-Poly1305 implementation of FieldCipher.
//
// Envelope layout: version(1) | nonce(24) | sealed payload and tag.
type Cipher struct {
	key     []byte
	hashKey []byte
}

var _ FieldCipher = (*Cipher)(nil)

// New builds a Cipher from a 32-byte key. When hashKey is non-empty lookup
// hashes are HMAC-SHA256 keyed with it; otherwise they are bare SHA-256
// digests, which stay compatible with hashes already stored but can be
// guessed offline for low-entropy values such as email addresses.
func New(key, hashKey []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	if len(hashKey) > 0 && hmac.Equal(hashKey, key) {
		return nil, fmt.Errorf("hash key must differ from the encryption key")
	}

	c := &Cipher{key: append([]byte(nil), key...)}
	if len(hashKey) > 0 {
		c.hashKey = append([]byte(nil), hashKey...)
	}
	return c, nil
}

// NewFromEncoded decodes base64 (standard or URL alphabet) key material.
func NewFromEncoded(encodedKey, encodedHashKey string) (*Cipher, error) {
	key, err := DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}

	var hashKey []byte
	if strings.TrimSpace(encodedHashKey) != "" {
		hashKey, err = DecodeKey(encodedHashKey)
		if err != nil {
			return nil, fmt.Errorf("decode hash key: %w", err)
		}
	}
	return New(key, hashKey)
}

// Keyed reports whether lookup hashes are HMACs.
func (c *Cipher) Keyed() bool {
	return len(c.hashKey) > 0
}

func (c *Cipher) Encrypt(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, envelopeVersion)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, []byte(plaintext), []byte{envelopeVersion}), nil
}

func (c *Cipher) Decrypt(ciphertext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}

	if len(ciphertext) < 1+aead.NonceSize()+aead.Overhead() {
		return "", &DecryptionError{Reason: "ciphertext too short"}
	}
	if ciphertext[0] != envelopeVersion {
		return "", &DecryptionError{Reason: fmt.Sprintf("unknown envelope version %d", ciphertext[0])}
	}

	nonce := ciphertext[1 : 1+aead.NonceSize()]
	sealed := ciphertext[1+aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, ciphertext[:1])
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed"}
	}
	return string(plaintext), nil
}

func (c *Cipher) LookupHash(value string) *string {
	normalized := Normalize(value)
	if normalized == "" {
		return nil
	}

	var h hash.Hash
	if c.Keyed() {
		h = hmac.New(sha256.New, c.hashKey)
	} else {
		h = sha256.New()
	}
	h.Write([]byte(normalized))

	digest := hex.EncodeToString(h.Sum(nil))
	return &digest
}

// Normalize lower-cases and trims a value before hashing.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// GenerateKey returns a fresh random key, base64url encoded.
func GenerateKey() (string, error) {
	buf := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// DecodeKey accepts standard or URL base64, padded or not.
func DecodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("key is empty")
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		if key, err := enc.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("key is not valid base64")
}
