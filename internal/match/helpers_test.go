package match

import (
	"slices"
	"testing"

	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
	"github.com/stretchr/testify/require"
)

var testPlayers = [seat.Count]PlayerID{"east", "south", "west", "north"}

// stackWall builds a standard set ordered so that dealing with East as dealer
// gives each seat the kinds named in hands, followed by draws. Hands may be
// partial; the gaps and the rest of the wall are filled in id order with tiles
// nobody named.
func stackWall(t testing.TB, hands [seat.Count]string, draws string) []tile.Tile {
	t.Helper()

	var pool [tile.NumKinds][]tile.Tile
	for _, tl := range tile.BuildStandardSet() {
		pool[tl.Kind()] = append(pool[tl.Kind()], tl)
	}
	take := func(k tile.Kind) tile.Tile {
		require.NotEmpty(t, pool[k], "no copies of %s left", k)
		tl := pool[k][0]
		pool[k] = pool[k][1:]
		return tl
	}

	var named [seat.Count][]tile.Tile
	for s, h := range hands {
		for _, k := range tile.MustParseKinds(h) {
			named[s] = append(named[s], take(k))
		}
		require.LessOrEqual(t, len(named[s]), dealSize+1)
	}
	var drawn []tile.Tile
	for _, k := range tile.MustParseKinds(draws) {
		drawn = append(drawn, take(k))
	}

	var filler []tile.Tile
	for _, ts := range pool {
		filler = append(filler, ts...)
	}
	deal := func(s seat.Seat, n int) []tile.Tile {
		k := min(n, len(named[s]))
		out := slices.Clone(named[s][:k])
		named[s] = named[s][k:]
		for len(out) < n {
			out = append(out, filler[0])
			filler = filler[1:]
		}
		return out
	}

	var wall []tile.Tile
	for _, s := range seat.All() {
		wall = append(wall, deal(s, dealSize)...)
	}
	wall = append(wall, deal(seat.East, 1)...)
	wall = append(wall, drawn...)
	wall = append(wall, filler...)
	require.NoError(t, tile.IsStandardSet(wall))
	return wall
}

// seatedGame returns a game with the four test players joined but not ready.
func seatedGame(t testing.TB, opts ...Option) *Game {
	t.Helper()
	g := NewGame("test", append([]Option{WithSeed(1)}, opts...)...)
	for _, id := range testPlayers {
		_, err := g.Apply(Join{PlayerID: id, Name: string(id)})
		require.NoError(t, err)
	}
	return g
}

// startedGame returns a dealt game with East to discard.
func startedGame(t testing.TB, opts ...Option) *Game {
	t.Helper()
	g := seatedGame(t, opts...)
	for _, id := range testPlayers {
		_, err := g.Apply(SetReady{PlayerID: id, Ready: true})
		require.NoError(t, err)
	}
	require.Equal(t, AwaitingDiscard, g.Phase())
	g.Drain()
	return g
}

func apply(t testing.TB, g *Game, cmd Command) {
	t.Helper()
	_, err := g.Apply(cmd)
	require.NoError(t, err, "%s", cmd.Name())
	requireConserved(t, g)
}

func requireConserved(t testing.TB, g *Game) {
	t.Helper()
	require.Equal(t, tile.SetSize, g.Snapshot().TileCount())
}

func playerAt(t testing.TB, g *Game, s seat.Seat) PlayerState {
	t.Helper()
	p, ok := g.Snapshot().Player(s)
	require.True(t, ok)
	return p
}

// held returns the first tile of kind k in the hand of the player at s.
func held(t testing.TB, g *Game, s seat.Seat, k string) tile.Tile {
	t.Helper()
	kind := tile.MustParseKinds(k)[0]
	for _, tl := range playerAt(t, g, s).Hand {
		if tl.Kind() == kind {
			return tl
		}
	}
	require.Failf(t, "tile not held", "%s holds no %s", s, k)
	return tile.Tile{}
}

// passOthers passes for every seat that may still respond.
func passOthers(t testing.TB, g *Game) {
	t.Helper()
	a := g.arbiter
	for _, s := range seat.Order(g.Turn()) {
		if g.Phase() != AwaitingClaims || g.arbiter != a {
			return
		}
		if g.arbiter.Pending(s) {
			apply(t, g, Pass{PlayerID: testPlayers[s]})
		}
	}
}

func eventsOf[E Event](events []Event) []E {
	var out []E
	for _, e := range events {
		if v, ok := e.(E); ok {
			out = append(out, v)
		}
	}
	return out
}
