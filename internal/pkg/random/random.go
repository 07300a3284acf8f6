// Package random provides the random source used by the games.
//
// Games never touch a global generator: they draw through a Source handed to
// them at construction, so tests can script every draw.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source draws indices. Generic helpers in this package map indices back to
// values so the interface stays free of type parameters.
type Source interface {
	// Choice returns a uniform index in [0, n).
	Choice(n int) int
	// WeightedChoices returns k indices drawn with replacement, each index i
	// chosen with probability weights[i] / sum(weights).
	WeightedChoices(weights []float64, k int) []int
	// Sample returns k distinct indices from [0, n) in draw order.
	Sample(n, k int) []int
}

// Rand is a Source backed by a PCG generator. It is safe for concurrent use.
type Rand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Rand with a fixed seed. Equal seeds give equal draw sequences.
func New(seed uint64) *Rand {
	return &Rand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewSeeded creates a Rand seeded from crypto/rand.
func NewSeeded() (*Rand, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return New(binary.LittleEndian.Uint64(b[:])), nil
}

// Choice returns a uniform index in [0, n). It panics if n <= 0.
func (r *Rand) Choice(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// WeightedChoices returns k indices drawn with replacement.
// Non-positive weights are never chosen; it panics if no weight is positive.
func (r *Rand) WeightedChoices(weights []float64, k int) []int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		panic("random: no positive weight")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, k)
	for i := range out {
		out[i] = pick(weights, r.rng.Float64()*total)
	}
	return out
}

// pick walks the cumulative weights until it passes x.
func pick(weights []float64, x float64) int {
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if x < w {
			return i
		}
		x -= w
	}
	// Float rounding can leave x a hair above the final bucket.
	return last
}

// Sample returns k distinct indices from [0, n) using a partial Fisher-Yates
// shuffle. It panics if k > n.
func (r *Rand) Sample(n, k int) []int {
	if k < 0 || k > n {
		panic("random: sample larger than population")
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < k; i++ {
		j := i + r.rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k:k]
}

// Choice picks one element of seq uniformly.
func Choice[T any](s Source, seq []T) T {
	return seq[s.Choice(len(seq))]
}

// WeightedChoice picks one element of population according to weights.
func WeightedChoice[T any](s Source, population []T, weights []float64) T {
	return population[s.WeightedChoices(weights, 1)[0]]
}

// Sample picks k distinct elements of population.
func Sample[T any](s Source, population []T, k int) []T {
	out := make([]T, 0, k)
	for _, i := range s.Sample(len(population), k) {
		out = append(out, population[i])
	}
	return out
}
