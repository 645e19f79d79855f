package bot

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/tile"
)

// Strategy chooses a move for the player a view belongs to. It returns nil
// when the player has nothing to do.
type Strategy interface {
	Name() string
	Decide(v match.View) match.Command
}

// Strategies lists the names accepted by NewStrategy.
var Strategies = []string{"greedy", "random"}

// NewStrategy creates a strategy by name. rng drives any randomness.
func NewStrategy(name string, rng *rand.Rand) (Strategy, error) {
	switch name {
	case "greedy":
		return Greedy{}, nil
	case "random":
		return NewRandom(rng), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// Random makes uniformly random legal moves, except that it always takes a
// win.
type Random struct {
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Decide(v match.View) match.Command {
	id := v.Self.ID
	switch {
	case v.MustRespond:
		if slices.Contains(v.Claims, hand.Hu) {
			return match.Claim{PlayerID: id, Kind: hand.Hu}
		}
		// One extra slot for passing
		if n := r.rng.IntN(len(v.Claims) + 1); n < len(v.Claims) {
			return match.Claim{PlayerID: id, Kind: v.Claims[n]}
		}
		return match.Pass{PlayerID: id}

	case v.MustDraw():
		return match.Draw{PlayerID: id}

	case v.MustDiscard():
		if v.CanWin {
			return match.DeclareWin{PlayerID: id}
		}
		if len(v.Kongs) > 0 && r.rng.IntN(2) == 0 {
			return match.DeclareKong{PlayerID: id, Kind: v.Kongs[r.rng.IntN(len(v.Kongs))]}
		}
		h := v.Self.Hand
		return match.Discard{PlayerID: id, Tile: h[r.rng.IntN(len(h))].ID()}
	}
	return nil
}

// Greedy always wins when it can, takes quads and triplets, never chows,
// and discards the tile that leaves the best shaped hand.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Decide(v match.View) match.Command {
	id := v.Self.ID
	switch {
	case v.MustRespond:
		for _, k := range []hand.ClaimKind{hand.Hu, hand.Gang, hand.Peng} {
			if slices.Contains(v.Claims, k) {
				return match.Claim{PlayerID: id, Kind: k}
			}
		}
		return match.Pass{PlayerID: id}

	case v.MustDraw():
		return match.Draw{PlayerID: id}

	case v.MustDiscard():
		if v.CanWin {
			return match.DeclareWin{PlayerID: id}
		}
		if len(v.Kongs) > 0 {
			return match.DeclareKong{PlayerID: id, Kind: v.Kongs[0]}
		}
		return match.Discard{PlayerID: id, Tile: BestDiscard(v.Self.Hand).ID()}
	}
	return nil
}

// BestDiscard picks the tile whose removal leaves the highest scoring hand.
// Ties go to the later tile in the hand, which is usually the one drawn.
func BestDiscard(h []tile.Tile) tile.Tile {
	best, bestScore := len(h)-1, -1
	rest := make([]tile.Tile, 0, len(h)-1)
	for i := len(h) - 1; i >= 0; i-- {
		rest = append(rest[:0], h[:i]...)
		rest = append(rest, h[i+1:]...)
		if s := Score(rest); s > bestScore {
			best, bestScore = i, s
		}
	}
	return h[best]
}

// Score rates a hand waiting to draw. A ready hand beats any other, and more
// waits are better; otherwise groups and near-groups count.
func Score(h []tile.Tile) int {
	if waits := hand.Waits(h); len(waits) > 0 {
		return 1000 + len(waits)
	}
	c := hand.CountsOf(h)
	score := 0
	for k, n := range c {
		if n == 0 {
			continue
		}
		switch {
		case n >= 3:
			score += 6
		case n == 2:
			score += 4
		}
		kind := tile.Kind(k)
		if !kind.Suit().Numbered() {
			continue
		}
		if neighbour(c, kind, 1) {
			score += 2 * int(n)
		}
		if neighbour(c, kind, 2) {
			score += int(n)
		}
	}
	return score
}

// neighbour reports whether c holds the kind d ranks above k in k's suit.
func neighbour(c hand.Counts, k tile.Kind, d int) bool {
	next := int(k) + d
	return next < len(c) && c[next] > 0 && tile.Kind(next).Suit() == k.Suit()
}
