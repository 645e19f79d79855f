package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from seed. Both PCG
// state words are derived through a splitmix finaliser so that nearby seeds
// (1, 2, 3...) still produce unrelated walls.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns seed unchanged when it is non-zero, otherwise a fresh seed
// read from crypto/rand. Callers log the returned value so a match can be
// replayed from its seed.
func Seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("randutil: crypto/rand unavailable: " + err.Error())
	}
	s := int64(binary.LittleEndian.Uint64(b[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
