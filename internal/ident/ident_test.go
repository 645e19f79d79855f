package ident

import (
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand struct {
	values []int
	i      int
}

func (f *fixedRand) IntN(n int) int {
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.i%len(f.values)] % n
	f.i++
	return v
}

func TestNewIsValid(t *testing.T) {
	id := New()
	require.Len(t, id, Length)
	require.NoError(t, Validate(id, ""))
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		id := New()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSortedByClock(t *testing.T) {
	clock := quartz.NewMock(t)
	g := NewGenerator(clock, &fixedRand{values: []int{200, 3, 17}})

	var ids []string
	for range 5 {
		ids = append(ids, g.New())
		ids = append(ids, g.New()) // same millisecond
		clock.Set(clock.Now().Add(time.Millisecond))
	}
	for i := 1; i < len(ids); i++ {
		assert.Negative(t, strings.Compare(ids[i-1], ids[i]), "%s !< %s", ids[i-1], ids[i])
	}
}

func TestDeterministicWithMockClock(t *testing.T) {
	clock := quartz.NewMock(t)
	a := NewGenerator(clock, &fixedRand{values: []int{1, 2, 3, 4, 5, 6, 7, 8}})
	b := NewGenerator(clock, &fixedRand{values: []int{1, 2, 3, 4, 5, 6, 7, 8}})
	assert.Equal(t, a.New(), b.New())
}

func TestPrefix(t *testing.T) {
	g := NewGenerator(nil, nil).WithPrefix("p_")
	id := g.New()
	require.True(t, strings.HasPrefix(id, "p_"))
	require.NoError(t, Validate(id, "p_"))
	require.Error(t, Validate(id, "m_"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid", "01h5n0et5q6mt3v7ms1234abcd", false},
		{"too short", "01h5n0et5q6mt3v7ms123", true},
		{"too long", "01h5n0et5q6mt3v7ms1234abcdef", true},
		{"first char too high", "81h5n0et5q6mt3v7ms1234abcd", true},
		{"invalid character", "01h5n0et5q6mt3v7ms1234abci", true},
		{"uppercase", "01H5N0ET5Q6MT3V7MS1234ABCD", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id, "")
			assert.Equal(t, tt.wantErr, err != nil, "Validate(%q) = %v", tt.id, err)
		})
	}
}

func TestAlphabet(t *testing.T) {
	require.Len(t, alphabet, 32)
	for _, c := range "ilou" {
		assert.NotContains(t, alphabet, string(c))
	}
}
