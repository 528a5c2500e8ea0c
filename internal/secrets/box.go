// Package secrets wraps the symmetric box used for credential values.
// Values are stored as base64(nonce || secretbox(plaintext)); decryption
// happens only while assembling a dispatch envelope.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrNoKey         = errors.New("master key is not configured")
	ErrInvalidCipher = errors.New("ciphertext is malformed or key mismatch")
)

const nonceSize = 24

type Box struct {
	key *[32]byte
}

// NewBox builds a Box from a base64-encoded 32-byte key. An empty key yields
// a Box whose operations fail with ErrNoKey so callers can surface a clear
// configuration error instead of a panic.
func NewBox(encodedKey string) (*Box, error) {
	if encodedKey == "" {
		return &Box{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &Box{key: &key}, nil
}

// GenerateKey returns a fresh base64-encoded 32-byte key.
func GenerateKey() (string, error) {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

func (b *Box) Encrypt(plaintext string) (string, error) {
	if b == nil || b.key == nil {
		return "", ErrNoKey
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (b *Box) Decrypt(ciphertext string) (string, error) {
	if b == nil || b.key == nil {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < nonceSize {
		return "", ErrInvalidCipher
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, b.key)
	if !ok {
		return "", ErrInvalidCipher
	}
	return string(opened), nil
}
