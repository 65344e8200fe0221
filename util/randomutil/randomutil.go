package randomutil

import (
	"math/rand"
)

// RandomGenerator produces the cache-busting values appended to outbound bid
// URLs. It is an interface so tests can pin the value; collisions are
// harmless since the purpose is cache defeat, not uniqueness.
type RandomGenerator interface {
	GenerateInt63() int64
}

type RandomNumberGenerator struct{}

func (RandomNumberGenerator) GenerateInt63() int64 {
	return rand.Int63()
}

// FixedNumberGenerator always generates the same value. Intended for tests.
type FixedNumberGenerator struct {
	Value int64
}

func (g FixedNumberGenerator) GenerateInt63() int64 {
	return g.Value
}
