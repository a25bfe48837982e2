// Package tokengen produces unguessable alphanumeric tokens for QR check-in.
package tokengen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator creates tokens of a fixed length.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws every character uniformly from crypto/rand.
type RandomGenerator struct {
	Length int
}

// NewRandomGenerator returns a generator for tokens of length characters.
func NewRandomGenerator(length int) *RandomGenerator {
	return &RandomGenerator{Length: length}
}

func (g *RandomGenerator) Generate() (string, error) {
	if g.Length <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", g.Length)
	}
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, g.Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
