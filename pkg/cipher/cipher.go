// Package cipher seals credential values at rest with AES-256-GCM.
//
// Sealed values are laid out as a version byte, the 12 byte nonce, then the
// ciphertext with its tag. The additional authenticated data binds a value to
// the path it is stored under, so a sealed blob copied to another path fails
// to open.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the data key length in bytes.
	KeySize = 32

	nonceSize = 12
	version   = byte('K')
)

var (
	// ErrInvalidKey is returned for a data key that is not 32 bytes.
	ErrInvalidKey = errors.New("data key must be 32 bytes")
	// ErrMalformed is returned when a sealed value cannot be unpacked.
	ErrMalformed = errors.New("sealed value is malformed")
)

// Sealer encrypts and decrypts values bound to additional data.
type Sealer interface {
	Seal(aad, plaintext []byte) ([]byte, error)
	Open(aad, sealed []byte) ([]byte, error)
}

// AESGCM is a Sealer backed by AES-256-GCM.
type AESGCM struct {
	aead gocipher.AEAD
}

var _ Sealer = (*AESGCM)(nil)

// New builds an AESGCM from a raw 32 byte key.
func New(key []byte) (*AESGCM, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{aead: aead}, nil
}

// NewFromBase64 builds an AESGCM from a standard base64 encoded key, the
// format printed by `keyvaultctl data-key generate`.
func NewFromBase64(encoded string) (*AESGCM, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode data key: %w", err)
	}
	return New(key)
}

// Seal encrypts plaintext under a fresh random nonce.
func (c *AESGCM) Seal(aad, plaintext []byte) ([]byte, error) {
	nonce, err := RandomBytes(nonceSize)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	out = append(out, version)
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, plaintext, aad), nil
}

// Open reverses Seal. It fails if aad differs from the value used to seal.
func (c *AESGCM) Open(aad, sealed []byte) ([]byte, error) {
	if len(sealed) < 1+nonceSize+c.aead.Overhead() || sealed[0] != version {
		return nil, ErrMalformed
	}

	nonce := sealed[1 : 1+nonceSize]
	return c.aead.Open(nil, nonce, sealed[1+nonceSize:], aad)
}

// RandomBytes returns size bytes from crypto/rand.
func RandomBytes(size int) ([]byte, error) {
	value := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, value); err != nil {
		return nil, err
	}
	return value, nil
}

// GenerateKey returns a new base64 encoded data key.
func GenerateKey() (string, error) {
	key, err := RandomBytes(KeySize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
