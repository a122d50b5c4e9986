/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"sync"
)

var (
	ErrInvalidRange  = errors.New("invalid sample range")
	ErrRangeTooSmall = errors.New("sample range holds fewer values than requested")
)

// Sampler draws unique indices and side coin flips from a single random source.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = newSeededRand()
	}

	return &Sampler{rng: rng}
}

func newSeededRand() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(err)
	}

	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// Sample returns count distinct integers from [min, max] in draw order.
// Partial Fisher-Yates over the range, so it always terminates.
func (s *Sampler) Sample(count, min, max int) ([]int, error) {
	if count < 0 || min > max {
		return nil, ErrInvalidRange
	}

	size := max - min + 1
	if count > size {
		return nil, ErrRangeTooSmall
	}

	pool := make([]int, size)
	for i := range pool {
		pool[i] = min + i
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < count; i++ {
		j := i + s.rng.IntN(size-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:count:count], nil
}

// Side flips a fair coin for the AI image placement.
func (s *Sampler) Side() Side {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.IntN(2) == 0 {
		return Left
	}

	return Right
}
