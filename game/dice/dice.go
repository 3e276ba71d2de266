// Package dice is the random source injected into game services.
package dice

import (
	"math/rand/v2"
	"sync"
)

// Roller produces the random draws used by game rules.
type Roller interface {
	// Between returns a uniform integer in [min, max].
	Between(min, max int) int
	// Chance reports true with probability p.
	Chance(p float64) bool
}

// Pick returns a uniform index in [0, n). n must be positive.
func Pick(r Roller, n int) int {
	return r.Between(0, n-1)
}

// Shuffle returns a random permutation of ids.
func Shuffle(r Roller, ids []string) []string {
	out := append([]string(nil), ids...)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Between(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Weighted picks a key with probability proportional to its weight.
// keys fixes the iteration order; zero-weight keys are never chosen.
func Weighted(r Roller, keys []string, weights map[string]int) string {
	total := 0
	for _, k := range keys {
		total += weights[k]
	}
	if total <= 0 {
		return ""
	}
	roll := r.Between(1, total)
	for _, k := range keys {
		roll -= weights[k]
		if roll <= 0 && weights[k] > 0 {
			return k
		}
	}
	return keys[len(keys)-1]
}

// Rand is a goroutine-safe Roller over math/rand/v2.
type Rand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Rand seeded from the runtime's entropy source.
func New() *Rand {
	return &Rand{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a reproducible Rand.
func NewSeeded(seed uint64) *Rand {
	return &Rand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Rand) Between(min, max int) int {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rng.IntN(max-min+1)
}

func (r *Rand) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < p
}

// Stub is a scripted Roller for tests. Between returns queued rolls clamped
// into range, then min once exhausted. Chance returns queued hits, then false.
type Stub struct {
	mu    sync.Mutex
	Rolls []int
	Hits  []bool
}

func (s *Stub) Between(min, max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Rolls) == 0 {
		return min
	}
	v := s.Rolls[0]
	s.Rolls = s.Rolls[1:]
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (s *Stub) Chance(float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Hits) == 0 {
		return false
	}
	v := s.Hits[0]
	s.Hits = s.Hits[1:]
	return v
}
