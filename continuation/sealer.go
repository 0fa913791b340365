package continuation

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var ErrInvalidSecret = errors.New("continuation secret must be at least 16 bytes")
var ErrTampered = errors.New("continuation failed integrity check")

// Sealer encrypts and authenticates continuations that leave the server, so
// clients can neither read nor forge the state they carry.
type Sealer struct {
	gcm cipher.AEAD
}

func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) < 16 {
		return nil, ErrInvalidSecret
	}
	key := pbkdf2.Key(secret, []byte("flowkeeper-continuation-v1"), 10000, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{gcm: gcm}, nil
}

func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.gcm.Seal(nonce, nonce, plain, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrTampered
	}
	nonce, data := sealed[:nonceSize], sealed[nonceSize:]
	plain, err := s.gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, ErrTampered
	}
	return plain, nil
}
