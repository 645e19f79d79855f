package hand

import (
	"github.com/lox/mahjongforbots/internal/tile"
)

// MaxTiles is the size of a complete concealed hand with no exposed melds.
const MaxTiles = 14

// IsWinningHand reports whether tiles split exactly into melds (triplets or
// runs) plus one pair. A full closed hand has 14 tiles; when melds are
// already exposed only the remaining 3n+2 concealed tiles are passed in.
// A fourth copy of a kind held in the hand is not a quad here: it must be
// absorbed by a run or the pair like any other tile.
func IsWinningHand(tiles []tile.Tile) bool {
	if len(tiles) < 2 || len(tiles) > MaxTiles || len(tiles)%3 != 2 {
		return false
	}
	c := CountsOf(tiles)
	return isWinning(&c)
}

// isWinning tries every pair candidate and then a meld decomposition of
// the rest. c is restored before returning.
func isWinning(c *Counts) bool {
	if c.Total()%3 != 2 {
		return false
	}
	for k := range c {
		if c[k] < 2 {
			continue
		}
		c[k] -= 2
		ok := decompose(c, nil)
		c[k] += 2
		if ok {
			return true
		}
	}
	return false
}

// decompose removes melds from c starting at the lowest remaining kind.
// That kind can only be the bottom of a triplet or of a run, so trying both
// is exhaustive. When groups is non-nil the successful melds are appended.
// c is restored before returning.
func decompose(c *Counts, groups *[]Group) bool {
	k := 0
	for k < len(c) && c[k] == 0 {
		k++
	}
	if k == len(c) {
		return true
	}
	kind := tile.Kind(k)

	if c[k] >= 3 {
		c[k] -= 3
		ok := decompose(c, groups)
		c[k] += 3
		if ok {
			prepend(groups, Group{Kind: Triplet, Base: kind})
			return true
		}
	}

	if runStart(kind) && c[k+1] > 0 && c[k+2] > 0 {
		c[k]--
		c[k+1]--
		c[k+2]--
		ok := decompose(c, groups)
		c[k]++
		c[k+1]++
		c[k+2]++
		if ok {
			prepend(groups, Group{Kind: Run, Base: kind})
			return true
		}
	}
	return false
}

func prepend(groups *[]Group, g Group) {
	if groups == nil {
		return
	}
	*groups = append([]Group{g}, *groups...)
}

// Group is one meld of a winning partition, identified by its lowest kind.
type Group struct {
	Kind MeldKind  `json:"kind"`
	Base tile.Kind `json:"base"`
}

// Partition is one way a winning hand splits into a pair and melds.
type Partition struct {
	Pair  tile.Kind `json:"pair"`
	Melds []Group   `json:"melds"`
}

// PartitionOf returns a decomposition of a winning hand. It reports false for
// anything IsWinningHand rejects. When several decompositions exist the one
// using the lowest pair is returned.
func PartitionOf(tiles []tile.Tile) (Partition, bool) {
	if !IsWinningHand(tiles) {
		return Partition{}, false
	}
	c := CountsOf(tiles)
	for k := range c {
		if c[k] < 2 {
			continue
		}
		c[k] -= 2
		var groups []Group
		ok := decompose(&c, &groups)
		c[k] += 2
		if ok {
			return Partition{Pair: tile.Kind(k), Melds: groups}, true
		}
	}
	return Partition{}, false
}

// Waits returns the kinds that would turn a 3n+1 hand into a winning one,
// skipping kinds the hand already holds all four copies of.
func Waits(hand []tile.Tile) []tile.Kind {
	if len(hand)%3 != 1 || len(hand) >= MaxTiles {
		return nil
	}
	c := CountsOf(hand)
	var waits []tile.Kind
	for k := range c {
		if c[k] >= tile.Copies {
			continue
		}
		c[k]++
		if isWinning(&c) {
			waits = append(waits, tile.Kind(k))
		}
		c[k]--
	}
	return waits
}
