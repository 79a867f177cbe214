package optimize

import (
	"math/rand"
	"sync"
)

// Sampler draws values for a parameter given the finished trials so far.
type Sampler interface {
	Sample(completed []FrozenTrial, direction Direction, name string, dist Distribution) interface{}
}

// RandomSampler samples every parameter independently and uniformly.
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler creates a RandomSampler with the given seed.
func NewRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample implements Sampler.
func (s *RandomSampler) Sample(_ []FrozenTrial, _ Direction, _ string, dist Distribution) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dist.sample(s.rng)
}
