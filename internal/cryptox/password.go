package cryptox

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode"
)

const (
	letters     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// generator alphabet: ascii letters, digits and punctuation
	alphabet = letters + digits + punctuation

	maxGenerateRounds = 64
)

var ErrPasswordLength = errors.New("password length too short")

// GeneratePassword returns a random password of the given length drawn from
// letters, digits and punctuation. The result always contains at least one
// character of each class.
func GeneratePassword(length int) (string, error) {
	if length < 3 {
		return "", ErrPasswordLength
	}
	max := big.NewInt(int64(len(alphabet)))

	for range maxGenerateRounds {
		var sb strings.Builder
		sb.Grow(length)
		for range length {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			sb.WriteByte(alphabet[n.Int64()])
		}
		pw := sb.String()
		if hasAllClasses(pw) {
			return pw, nil
		}
	}
	return "", errors.New("could not generate password")
}

func hasAllClasses(s string) bool {
	var letter, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(punctuation, r):
			special = true
		}
	}
	return letter && digit && special
}
