package store

import (
	"math/rand"
	"time"
)

type Randomizer struct {
	rnd *rand.Rand
}

// NewRandomizer initializes a new Randomizer. A zero seed seeds from the clock.
func NewRandomizer(seed int64) *Randomizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Randomizer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// RandomInt63 returns a non-negative pseudo-random 63-bit integer as an int64
func (r *Randomizer) RandomInt63() int64 {
	return r.rnd.Int63()
}

// RandomIntn returns a non-negative pseudo-random int in [0,n)
func (r *Randomizer) RandomIntn(n int) int {
	return r.rnd.Intn(n)
}

// Between returns a pseudo-random int in [min,max). It returns min when the
// range is empty.
func (r *Randomizer) Between(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.rnd.Intn(max-min)
}

// Pick returns a random element of list.
func (r *Randomizer) Pick(list []string) string {
	return list[r.rnd.Intn(len(list))]
}

// Sample returns n distinct random elements of list without modifying it.
func (r *Randomizer) Sample(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	shuffled := append([]string(nil), list...)
	r.rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

// Float32 returns a pseudo-random number in [0.0,1.0)
func (r *Randomizer) Float32() float32 {
	return r.rnd.Float32()
}
