package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/suspectsources/internal/common"
	"github.com/dmitrijs2005/suspectsources/internal/filex"
)

// KeySize is the AES-256 key length used for sealed credential files.
const KeySize = 32

var ErrSealedTooShort = errors.New("sealed payload too short")

// GenerateKey returns a fresh random AES-256 key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// Seal encrypts plaintext with AES-GCM under key. A new random nonce is
// generated for each call and prepended to the ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	ns := aesgcm.NonceSize()
	if len(sealed) < ns {
		return nil, ErrSealedTooShort
	}
	return aesgcm.Open(nil, sealed[:ns], sealed[ns:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// WriteKeyFile stores key base64 encoded with owner-only permissions.
func WriteKeyFile(path string, key []byte) error {
	return filex.WritePrivate(path, []byte(base64.StdEncoding.EncodeToString(key)))
}

// ReadKeyFile loads a key written by WriteKeyFile.
func ReadKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// SealFile encrypts the contents of in and writes the result to out.
func SealFile(keyPath, in, out string) error {
	key, err := ReadKeyFile(keyPath)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	plaintext, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	sealed, err := Seal([]byte(strings.TrimSpace(string(plaintext))), key)
	if err != nil {
		return err
	}
	return filex.WritePrivate(out, sealed)
}

// OpenSealedFile decrypts a file produced by SealFile and returns its
// contents as a string.
func OpenSealedFile(keyPath, sealedPath string) (string, error) {
	key, err := ReadKeyFile(keyPath)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	sealed, err := os.ReadFile(sealedPath)
	if err != nil {
		return "", fmt.Errorf("read sealed file: %w", err)
	}
	plaintext, err := Open(sealed, key)
	if err != nil {
		return "", fmt.Errorf("open sealed file: %w", err)
	}
	return string(plaintext), nil
}
