package orderbook

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource supplies uniform values in [0, 1) for level depth.
type RandomSource interface {
	Float64() float64
}

// SeededRandom is a goroutine-safe PCG generator.
type SeededRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededRandom returns a deterministic source for seed. Seed 0 seeds from
// the clock.
func NewSeededRandom(seed uint64) *SeededRandom {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SeededRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 implements RandomSource.
func (r *SeededRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}
