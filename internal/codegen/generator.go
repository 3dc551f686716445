// Package codegen produces random discount code candidates.
package codegen

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Alphabet is the 36-symbol set codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator returns count distinct candidates of the given length. Candidates may
// still collide with codes that are already persisted.
type Generator interface {
	Generate(count, length int) ([]string, error)
}

type RandomGenerator struct {
	rand io.Reader
}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{rand: rand.Reader}
}

// NewGeneratorWithReader draws randomness from r instead of crypto/rand.
func NewGeneratorWithReader(r io.Reader) *RandomGenerator {
	return &RandomGenerator{rand: r}
}

func (g *RandomGenerator) Generate(count, length int) ([]string, error) {
	if count < 0 || length <= 0 {
		return nil, fmt.Errorf("invalid generate arguments: count=%d length=%d", count, length)
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for len(codes) < count {
		code, err := g.randomCode(length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

func (g *RandomGenerator) randomCode(length int) (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}
