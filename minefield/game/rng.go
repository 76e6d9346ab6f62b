package game

import (
	"math/rand"
	"time"
)

// Rand is the injectable random source for mine rolls, arena rounds, flips
// and coffer draws. Tests swap in a scripted source to force outcomes.
type Rand interface {
	// Intn returns a uniform int in [0, n).
	Intn(n int) int
}

func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
