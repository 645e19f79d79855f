// Package hand evaluates mahjong hands: which melds a hand contains, which
// claims a player may make on a discard, and whether tiles form a win.
//
// All comparisons are by tile.Kind. Instance ids only decide which physical
// tiles a meld consumes.
package hand

import (
	"errors"
	"slices"

	"github.com/lox/mahjongforbots/internal/tile"
)

var (
	// ErrNotHeld is returned when a supporting tile is not in the hand.
	ErrNotHeld = errors.New("tile not in hand")
	// ErrNoMeld is returned when the tiles do not form the claimed meld.
	ErrNoMeld = errors.New("tiles do not form the claimed meld")
)

// Counts holds how many tiles of each kind a hand contains.
type Counts [tile.NumKinds]uint8

// CountsOf tallies tiles by kind.
func CountsOf(tiles []tile.Tile) Counts {
	var c Counts
	for _, t := range tiles {
		c[t.Kind()]++
	}
	return c
}

// Total returns the number of tiles counted.
func (c *Counts) Total() int {
	n := 0
	for _, v := range c {
		n += int(v)
	}
	return n
}

// runStart reports whether a run k, k+1, k+2 stays inside one numbered suit.
func runStart(k tile.Kind) bool {
	return k.Suit().Numbered() && k.Rank() <= 7
}

// LegalMelds returns every triplet and every run present in hand, each with
// the lowest-id tiles it would consume. Kinds appear in ascending order.
func LegalMelds(hand []tile.Tile) []Meld {
	byKind := groupByKind(hand)
	var melds []Meld
	for k := tile.Kind(0); k < tile.NumKinds; k++ {
		if len(byKind[k]) >= 3 {
			melds = append(melds, Meld{Kind: Triplet, Tiles: slices.Clone(byKind[k][:3])})
		}
		if runStart(k) && len(byKind[k]) > 0 && len(byKind[k+1]) > 0 && len(byKind[k+2]) > 0 {
			melds = append(melds, Meld{
				Kind:  Run,
				Tiles: []tile.Tile{byKind[k][0], byKind[k+1][0], byKind[k+2][0]},
			})
		}
	}
	return melds
}

// CanClaim reports whether a player holding hand may claim discarded as kind.
// fromNextSeat must be true when the claimant sits directly after the
// discarder; chi is only legal then.
func CanClaim(hand []tile.Tile, discarded tile.Tile, kind ClaimKind, fromNextSeat bool) bool {
	c := CountsOf(hand)
	d := discarded.Kind()
	switch kind {
	case Peng:
		return c[d] >= 2
	case Gang:
		return c[d] >= 3
	case Chi:
		return fromNextSeat && len(chiPairs(c, d)) > 0
	case Hu:
		c[d]++
		return isWinning(&c)
	}
	return false
}

// Options lists the claims hand may make on discarded, highest priority
// first.
func Options(hand []tile.Tile, discarded tile.Tile, fromNextSeat bool) []ClaimKind {
	var opts []ClaimKind
	for _, k := range []ClaimKind{Hu, Gang, Peng, Chi} {
		if CanClaim(hand, discarded, k, fromNextSeat) {
			opts = append(opts, k)
		}
	}
	return opts
}

// chiPairs returns the kind pairs that complete a run with d.
func chiPairs(c Counts, d tile.Kind) [][2]tile.Kind {
	if !d.Suit().Numbered() {
		return nil
	}
	var pairs [][2]tile.Kind
	r := d.Rank()
	if r >= 3 && c[d-2] > 0 && c[d-1] > 0 {
		pairs = append(pairs, [2]tile.Kind{d - 2, d - 1})
	}
	if r >= 2 && r <= 8 && c[d-1] > 0 && c[d+1] > 0 {
		pairs = append(pairs, [2]tile.Kind{d - 1, d + 1})
	}
	if r <= 7 && c[d+1] > 0 && c[d+2] > 0 {
		pairs = append(pairs, [2]tile.Kind{d + 1, d + 2})
	}
	return pairs
}

// ChiOptions returns the tile pairs from hand that complete a run with
// discarded, using the lowest-id copy of each kind.
func ChiOptions(hand []tile.Tile, discarded tile.Tile) [][2]tile.Tile {
	byKind := groupByKind(hand)
	var out [][2]tile.Tile
	for _, p := range chiPairs(CountsOf(hand), discarded.Kind()) {
		out = append(out, [2]tile.Tile{byKind[p[0]][0], byKind[p[1]][0]})
	}
	return out
}

// SupportFor resolves the tiles from hand a claim of kind on discarded
// consumes. With no ids the lowest-id tiles are chosen; otherwise every id
// must be held and, together with the discard, form the meld. Hu consumes
// nothing and only needs the completed hand to win.
func SupportFor(hand []tile.Tile, discarded tile.Tile, kind ClaimKind, ids []tile.ID) ([]tile.Tile, error) {
	if kind == Hu {
		if !CanClaim(hand, discarded, Hu, false) {
			return nil, ErrNoMeld
		}
		return nil, nil
	}

	need := 2
	if kind == Gang {
		need = 3
	}

	if len(ids) == 0 {
		return autoSupport(hand, discarded, kind, need)
	}
	if len(ids) != need {
		return nil, ErrNoMeld
	}

	picked := make([]tile.Tile, 0, need)
	for _, id := range ids {
		t, ok := find(hand, id)
		if !ok {
			return nil, ErrNotHeld
		}
		if slices.Contains(picked, t) {
			return nil, ErrNoMeld
		}
		picked = append(picked, t)
	}

	d := discarded.Kind()
	switch kind {
	case Peng, Gang:
		for _, t := range picked {
			if t.Kind() != d {
				return nil, ErrNoMeld
			}
		}
	case Chi:
		kinds := []tile.Kind{picked[0].Kind(), picked[1].Kind(), d}
		slices.Sort(kinds)
		if !runStart(kinds[0]) || kinds[1] != kinds[0]+1 || kinds[2] != kinds[0]+2 {
			return nil, ErrNoMeld
		}
	default:
		return nil, ErrNoMeld
	}
	return picked, nil
}

func autoSupport(hand []tile.Tile, discarded tile.Tile, kind ClaimKind, need int) ([]tile.Tile, error) {
	if kind == Chi {
		opts := ChiOptions(hand, discarded)
		if len(opts) == 0 {
			return nil, ErrNoMeld
		}
		return opts[0][:], nil
	}
	same := groupByKind(hand)[discarded.Kind()]
	if len(same) < need {
		return nil, ErrNoMeld
	}
	return slices.Clone(same[:need]), nil
}

// MeldFor builds the exposed meld a resolved claim produces.
func MeldFor(kind ClaimKind, discarded tile.Tile, support []tile.Tile) Meld {
	tiles := append(slices.Clone(support), discarded)
	tile.Sort(tiles)
	return Meld{Kind: meldOf(kind), Tiles: tiles}
}

func find(hand []tile.Tile, id tile.ID) (tile.Tile, bool) {
	for _, t := range hand {
		if t.ID() == id {
			return t, true
		}
	}
	return tile.Tile{}, false
}

// groupByKind buckets a sorted copy of hand by kind.
func groupByKind(hand []tile.Tile) [tile.NumKinds][]tile.Tile {
	sorted := slices.Clone(hand)
	tile.Sort(sorted)
	var by [tile.NumKinds][]tile.Tile
	for _, t := range sorted {
		by[t.Kind()] = append(by[t.Kind()], t)
	}
	return by
}
