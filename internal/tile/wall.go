package tile

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
)

// BuildStandardSet returns the 136 tiles of a standard set in id order.
func BuildStandardSet() []Tile {
	tiles := make([]Tile, SetSize)
	for i := range tiles {
		tiles[i] = New(ID(i))
	}
	return tiles
}

// Shuffle returns a uniformly permuted copy of tiles using Fisher-Yates.
// The input slice is left untouched.
func Shuffle(tiles []Tile, rng *rand.Rand) []Tile {
	out := slices.Clone(tiles)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// IsStandardSet reports whether tiles contains each of the 136 instance ids
// exactly once, in any order.
func IsStandardSet(tiles []Tile) error {
	if len(tiles) != SetSize {
		return fmt.Errorf("expected %d tiles, got %d", SetSize, len(tiles))
	}
	var seen [SetSize]bool
	for _, t := range tiles {
		if int(t.id) >= SetSize || t.kind != Kind(t.id/Copies) {
			return fmt.Errorf("invalid tile %v", t)
		}
		if seen[t.id] {
			return fmt.Errorf("duplicate tile %v", t)
		}
		seen[t.id] = true
	}
	return nil
}

// Sort orders tiles by kind, then instance id.
func Sort(tiles []Tile) {
	slices.SortFunc(tiles, func(a, b Tile) int {
		return int(a.id) - int(b.id)
	})
}

// Wall is the face-down draw pile. Tiles leave from the front only.
type Wall struct {
	tiles []Tile
	next  int
}

// NewWall wraps tiles in a wall. The wall keeps its own copy.
func NewWall(tiles []Tile) *Wall {
	return &Wall{tiles: slices.Clone(tiles)}
}

// Draw removes and returns the front tile. ok is false once the wall is
// exhausted.
func (w *Wall) Draw() (t Tile, ok bool) {
	if w.next >= len(w.tiles) {
		return Tile{}, false
	}
	t = w.tiles[w.next]
	w.next++
	return t, true
}

// Deal removes n tiles from the front. It returns nil without consuming
// anything if fewer than n remain.
func (w *Wall) Deal(n int) []Tile {
	if w.next+n > len(w.tiles) {
		return nil
	}
	out := slices.Clone(w.tiles[w.next : w.next+n])
	w.next += n
	return out
}

// Remaining returns the number of tiles left to draw.
func (w *Wall) Remaining() int {
	return len(w.tiles) - w.next
}
