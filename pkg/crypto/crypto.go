package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrCiphertextTooShort is returned when a sealed payload cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Sealer encrypts backend credentials before they are persisted with a portal session.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds an AES-GCM sealer from a 16, 24 or 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext and returns a base64 string bound to the supplied label.
func (s *Sealer) Seal(plaintext, label string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(label))
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a payload produced by Seal with the same label.
func (s *Sealer) Open(sealed, label string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	nonce, cipherBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, cipherBytes, []byte(label))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
