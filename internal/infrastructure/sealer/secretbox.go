// Package sealer encrypts credentials before they are written to storage.
package sealer

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize      = 32
	nonceSize    = 24
	// sealedPrefix marks values written by SecretBox so plaintext rows from
	// before encryption was enabled can still be read.
	sealedPrefix = "sb1:"
)

var (
	ErrInvalidKey     = errors.New("sealer: key must be 32 bytes, base64 encoded")
	ErrSealedTooShort = errors.New("sealer: sealed value is truncated")
	ErrOpenFailed     = errors.New("sealer: value could not be decrypted")
)

// SecretBox seals values with XSalsa20-Poly1305 under a single key
type SecretBox struct {
	key [keySize]byte
	rnd io.Reader
}

// NewSecretBox creates a sealer from a base64 encoded 32 byte key
func NewSecretBox(encodedKey string) (*SecretBox, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	s := &SecretBox{rnd: rand.Reader}
	copy(s.key[:], raw)
	return s, nil
}

// GenerateKey returns a fresh base64 encoded key
func GenerateKey() (string, error) {
	var k [keySize]byte
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return "", fmt.Errorf("sealer: generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(k[:]), nil
}

// Seal encrypts plaintext. The empty string stays empty.
func (s *SecretBox) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rnd, nonce[:]); err != nil {
		return "", fmt.Errorf("sealer: nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal. Values without the sealed prefix
// are returned unchanged.
func (s *SecretBox) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if len(sealed) < len(sealedPrefix) || sealed[:len(sealedPrefix)] != sealedPrefix {
		return sealed, nil
	}
	box, err := base64.StdEncoding.DecodeString(sealed[len(sealedPrefix):])
	if err != nil {
		return "", ErrOpenFailed
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", ErrSealedTooShort
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrOpenFailed
	}
	return string(plain), nil
}

// Plain stores values unchanged. It is used when no key is configured.
type Plain struct{}

// Seal returns plaintext unchanged
func (Plain) Seal(plaintext string) (string, error) { return plaintext, nil }

// Open returns sealed unchanged
func (Plain) Open(sealed string) (string, error) { return sealed, nil }
