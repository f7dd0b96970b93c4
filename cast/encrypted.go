package cast

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Encrypted stores text AES-GCM encrypted and base64 encoded. The nonce is
// prefixed to the ciphertext, so the same plaintext encrypts differently on
// every Set while Get(Set(v)) always round-trips.
type Encrypted struct {
	aead cipher.AEAD
}

// NewEncrypted build an encrypted cast from a 16, 24 or 32 byte key
func NewEncrypted(key []byte) (*Encrypted, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encrypted cast: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encrypted cast: %w", err)
	}
	return &Encrypted{aead: aead}, nil
}

func (e *Encrypted) Get(raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	data, err := toBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("encrypted cast: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("encrypted cast: %w", err)
	}
	if len(decoded) < e.aead.NonceSize() {
		return nil, fmt.Errorf("encrypted cast: ciphertext shorter than nonce")
	}

	nonce, ciphertext := decoded[:e.aead.NonceSize()], decoded[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypted cast: %w", err)
	}
	return string(plaintext), nil
}

func (e *Encrypted) Set(domain interface{}) (interface{}, error) {
	if domain == nil {
		return nil, nil
	}

	plaintext, ok := domain.(string)
	if !ok {
		return nil, fmt.Errorf("encrypted cast: unsupported type %T", domain)
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("encrypted cast: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
