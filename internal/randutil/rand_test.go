package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for range 16 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestNearbySeedsDiverge(t *testing.T) {
	assert.NotEqual(t, New(1).Uint64(), New(2).Uint64())
}

func TestSeed(t *testing.T) {
	assert.Equal(t, int64(7), Seed(7))
	s := Seed(0)
	assert.Positive(t, s)
}
