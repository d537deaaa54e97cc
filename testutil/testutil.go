package testutil

import (
	"math/rand"
	"strconv"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

var alphabet = []string{"c", "n", "o", "s", "p", "cl", "br", "f", "ring", "chain"}

// Words returns n cells of up to maxTokens space-separated tokens each.
func (r *RNG) Words(n, maxTokens int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, n)
	for i := range out {
		k := 1 + r.rand.Intn(maxTokens)
		var b []byte
		for j := range k {
			if j > 0 {
				b = append(b, ' ')
			}
			b = append(b, alphabet[r.rand.Intn(len(alphabet))]...)
		}
		out[i] = b
	}
	return out
}

// Numbers returns n numeric cells in [0, max).
func (r *RNG) Numbers(n int, max float64) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, n)
	for i := range out {
		out[i] = strconv.AppendFloat(nil, r.rand.Float64()*max, 'f', 3, 64)
	}
	return out
}
