// Package urlgen generates random short codes.
package urlgen

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Charset is the alphabet generated codes are drawn from.
const Charset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength is the length of generated codes when none is configured.
const DefaultLength = 6

// ErrInvalidLength is returned when a non-positive length is requested.
var ErrInvalidLength = errors.New("code length must be positive")

// Generator produces candidate short codes.
type Generator func() (string, error)

// Generate creates a random code of the given length.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	var sb strings.Builder
	sb.Grow(length)

	charsetLength := big.NewInt(int64(len(Charset)))

	for i := 0; i < length; i++ {
		randomIndex, err := rand.Int(rand.Reader, charsetLength)
		if err != nil {
			return "", err
		}
		sb.WriteByte(Charset[randomIndex.Int64()])
	}
	return sb.String(), nil
}

// NewGenerator returns a Generator bound to a fixed code length.
func NewGenerator(length int) Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return func() (string, error) {
		return Generate(length)
	}
}
