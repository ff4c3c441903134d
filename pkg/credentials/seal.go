package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var ErrUnsealable = errors.New("sealed credential unreadable")

const sealInfo = "bearer credential store v1"

// Sealer encrypts credential values at rest with XChaCha20-Poly1305. The key is
// derived from a caller secret with HKDF-SHA256, and the credential key name is
// bound as additional data so sealed values can't be moved between keys.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("seal secret must not be empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("couldn't derive seal key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("couldn't init cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(key string, value string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("couldn't generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, []byte(value), []byte(key)), nil
}

func (s *Sealer) Open(key string, sealed []byte) (string, error) {
	if len(sealed) < s.aead.NonceSize() {
		return "", fmt.Errorf("%w: too short", ErrUnsealable)
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsealable, err)
	}
	return string(plaintext), nil
}

// seal and open pass values through unchanged when no sealer is configured.
func seal(s *Sealer, key string, value string) ([]byte, error) {
	if s == nil {
		return []byte(value), nil
	}
	return s.Seal(key, value)
}

func open(s *Sealer, key string, stored []byte) (string, error) {
	if s == nil {
		return string(stored), nil
	}
	return s.Open(key, stored)
}
