package service

import (
	"math/rand/v2"
	"sync"
	"time"
)

// IndexSource picks a uniform index in [0, n). n is always > 0.
type IndexSource interface {
	Intn(n int) int
}

// IndexSourceFunc adapts a plain function to IndexSource.
type IndexSourceFunc func(n int) int

func (f IndexSourceFunc) Intn(n int) int {
	return f(n)
}

type seededIndexSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededIndexSource returns a goroutine-safe source. The same seed replays the same picks.
func NewSeededIndexSource(seed uint64) IndexSource {
	return &seededIndexSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// NewIndexSource seeds from the clock when seed is 0.
func NewIndexSource(seed uint64) IndexSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return NewSeededIndexSource(seed)
}

func (s *seededIndexSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
