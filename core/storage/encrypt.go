package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"os"
)

// dek wraps the data encryption key and its AEAD. Encryption is optional:
// medical payloads never touch this store (they live in the blob store), but
// entry lists still carry patient identifiers worth protecting.
type dek struct {
	aead cipher.AEAD
}

// dekFromEnv loads MEDLEDGER_DEK (base64, 32 bytes decoded). An unset
// variable means plaintext storage; a malformed one is an error rather than a
// silent downgrade.
func dekFromEnv() (*dek, error) {
	b64 := os.Getenv("MEDLEDGER_DEK")
	if b64 == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.New("MEDLEDGER_DEK is not valid base64")
	}
	if len(key) != 32 {
		return nil, errors.New("MEDLEDGER_DEK must decode to 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &dek{aead: aead}, nil
}

// seal encrypts plaintext with a random nonce prepended to the ciphertext.
func (d *dek) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, d.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return d.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (d *dek) open(ciphertext []byte) ([]byte, error) {
	size := d.aead.NonceSize()
	if len(ciphertext) < size {
		return nil, errors.New("ciphertext too short")
	}
	return d.aead.Open(nil, ciphertext[:size], ciphertext[size:], nil)
}
