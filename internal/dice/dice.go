// Package dice provides the random sources injected into the rules engine:
// a seeded generator for matches, a crypto seed helper and a scripted
// sequence for tests.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
)

// Sides is the number of faces on a die.
const Sides = 6

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewSeeded returns a deterministic generator of numbers in [0, 1).
// The returned function is safe for concurrent use.
func NewSeeded(seed uint64) func() float64 {
	r := rand.New(rand.NewSource(seed))
	var mu sync.Mutex
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

// NewRandom returns a generator seeded from crypto/rand.
func NewRandom() (func() float64, uint64, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, 0, err
	}
	return NewSeeded(seed), seed, nil
}

// D6 rolls a six-sided die.
func D6(rng func() float64) int {
	return Roll(rng, Sides)
}

// Roll returns a value in [1, sides].
func Roll(rng func() float64, sides int) int {
	if sides <= 0 {
		return 0
	}
	v := int(rng()*float64(sides)) + 1
	if v > sides {
		v = sides
	}
	return v
}

// Face returns the RNG value that makes Roll produce face on a die with the
// given sides. Used to script dice in tests.
func Face(face, sides int) float64 {
	return (float64(face) - 0.5) / float64(sides)
}

// Sequence replays values in order and then wraps around.
func Sequence(values ...float64) func() float64 {
	if len(values) == 0 {
		values = []float64{0}
	}
	i := 0
	return func() float64 {
		v := values[i%len(values)]
		i++
		return v
	}
}

// Faces returns a Sequence that rolls the given d6 faces.
func Faces(faces ...int) func() float64 {
	values := make([]float64, len(faces))
	for i, f := range faces {
		values[i] = Face(f, Sides)
	}
	return Sequence(values...)
}
