package hand

import (
	"encoding/json"
	"testing"

	"github.com/lox/mahjongforbots/internal/randutil"
	"github.com/lox/mahjongforbots/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWinningHand(t *testing.T) {
	tests := []struct {
		name string
		hand string
		want bool
	}{
		{"triplets and pair", "111m 222m 333m 444p 55s", true},
		{"runs", "123m 456m 789m 234p 99s", true},
		{"mixed with honors", "EwEwEw RdRdRd 345s 678p 11m", true},
		{"pure one suit", "11123456789999m", true},
		{"four copies without a home", "1111m 234m 567p 88p 99s", false},
		{"four copies as triplet plus run", "1111m 23m 456p 789p 55s", true},
		{"leftover tile", "111m 222m 333m 444p 5s 6s", false},
		{"honors cannot run", "EwSwWw 111m 222m 333m 55p", false},
		{"no pair", "123m 456m 789m 123p 45s", false},
		{"runs do not wrap suits", "89m 1s 111p 222p 333p 55s", false},
		{"seven pairs is not this ruleset", "11m 22m 33p 44p 55s 66s EwEw", false},
		{"thirteen tiles", "123m 456m 789m 123p 5s", false},
		{"exposed melds leave 3n+2", "123m 55p", true},
		{"just a pair", "RdRd", true},
		{"pair mismatch", "RdGd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWinningHand(tile.MustParse(tt.hand)), tt.hand)
		})
	}
}

func TestIsWinningHandRejectsOversize(t *testing.T) {
	hand := tile.MustParse("111m 222m 333m 444m 555m 66p")
	require.Len(t, hand, 17)
	assert.False(t, IsWinningHand(hand))
}

// randomMelds picks four random melds (12 kinds) respecting the four-copy
// limit and returns them with the per-kind usage.
func randomMelds(seed int64) ([]tile.Kind, [tile.NumKinds]int) {
	rng := randutil.New(seed)
	var used [tile.NumKinds]int
	var kinds []tile.Kind
	for len(kinds) < 12 {
		k := tile.Kind(rng.IntN(tile.NumKinds))
		if rng.IntN(2) == 0 && runStart(k) {
			if used[k] < 4 && used[k+1] < 4 && used[k+2] < 4 {
				used[k]++
				used[k+1]++
				used[k+2]++
				kinds = append(kinds, k, k+1, k+2)
			}
			continue
		}
		if used[k] <= 1 {
			used[k] += 3
			kinds = append(kinds, k, k, k)
		}
	}
	return kinds, used
}

// randomWinningHand builds four random melds and a pair.
func randomWinningHand(t *testing.T, seed int64) []tile.Tile {
	t.Helper()
	kinds, used := randomMelds(seed)
	pair := tile.Kind(seed % tile.NumKinds)
	for used[pair] > 2 {
		pair = (pair + 1) % tile.NumKinds
	}
	tiles, err := tile.FromKinds(append(kinds, pair, pair))
	require.NoError(t, err)
	return tiles
}

func TestWinningHandOrderIndependent(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		hand := randomWinningHand(t, seed)
		require.Len(t, hand, 14)
		for shuffle := int64(0); shuffle < 5; shuffle++ {
			shuffled := tile.Shuffle(hand, randutil.New(seed*31+shuffle))
			require.True(t, IsWinningHand(shuffled), "seed %d: %s", seed, tile.Format(shuffled))
		}
	}
}

func TestWinningHandLeftoverAlwaysRejected(t *testing.T) {
	honors := tile.MustParseKinds("EwSwWwNw RdGdWd")
	for seed := int64(1); seed <= 200; seed++ {
		kinds, used := randomMelds(seed)
		// Two honors that appear nowhere else can never be part of a meld
		// or the pair.
		var lone []tile.Kind
		for _, h := range honors {
			if used[h] == 0 {
				lone = append(lone, h)
			}
		}
		if len(lone) < 2 {
			continue
		}
		tiles, err := tile.FromKinds(append(kinds, lone[0], lone[1]))
		require.NoError(t, err)
		require.Len(t, tiles, 14)
		require.False(t, IsWinningHand(tiles), tile.Format(tiles))
	}
}

func TestPartitionOf(t *testing.T) {
	p, ok := PartitionOf(tile.MustParse("234m 111p 789s RdRdRd WdWd"))
	require.True(t, ok)
	assert.Equal(t, tile.MustParseKinds("Wd")[0], p.Pair)
	require.Len(t, p.Melds, 4)
	assert.Equal(t, Group{Kind: Run, Base: tile.MustParseKinds("2m")[0]}, p.Melds[0])

	_, ok = PartitionOf(tile.MustParse("123m 456m 789m 123p 4s 5s"))
	assert.False(t, ok)
}

func TestPartitionTilesAddUp(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		hand := randomWinningHand(t, seed)
		p, ok := PartitionOf(hand)
		require.True(t, ok)
		c := CountsOf(hand)
		c[p.Pair] -= 2
		for _, g := range p.Melds {
			switch g.Kind {
			case Triplet:
				c[g.Base] -= 3
			case Run:
				c[g.Base]--
				c[g.Base+1]--
				c[g.Base+2]--
			}
		}
		assert.Zero(t, c.Total(), "seed %d", seed)
	}
}

func TestWaits(t *testing.T) {
	waits := Waits(tile.MustParse("123m 456m 789m 11p 23s"))
	assert.Equal(t, tile.MustParseKinds("1s 4s"), waits)

	// 1112345678999m waits on every character.
	waits = Waits(tile.MustParse("1112345678999m"))
	assert.Equal(t, tile.MustParseKinds("123456789m"), waits)

	assert.Empty(t, Waits(tile.MustParse("19m 19p 19s EwSwWwNw RdGdWd")))
	assert.Nil(t, Waits(tile.MustParse("11m")))
}

func TestLegalMelds(t *testing.T) {
	melds := LegalMelds(tile.MustParse("11123m 345p EwEw"))
	var got []string
	for _, m := range melds {
		got = append(got, m.String())
	}
	assert.Equal(t, []string{
		"triplet(1m 1m 1m)",
		"run(1m 2m 3m)",
		"run(3p 4p 5p)",
	}, got)

	for _, m := range melds {
		assert.Len(t, m.Tiles, 3)
	}
	assert.Empty(t, LegalMelds(tile.MustParse("EwSwWw RdGd")))
}

func TestCanClaim(t *testing.T) {
	hand := tile.MustParse("55p 777s 34m 123m 456m 9p")
	five := tile.Instance(tile.MustParseKinds("5p")[0], 3)
	seven := tile.Instance(tile.MustParseKinds("7s")[0], 3)
	twoM := tile.Instance(tile.MustParseKinds("2m")[0], 3)
	nineP := tile.Instance(tile.MustParseKinds("9p")[0], 3)

	tests := []struct {
		name     string
		discard  tile.Tile
		kind     ClaimKind
		nextSeat bool
		want     bool
	}{
		{"peng with pair", five, Peng, false, true},
		{"gang needs three", five, Gang, false, false},
		{"gang with triplet", seven, Gang, false, true},
		{"peng with triplet", seven, Peng, false, true},
		{"chi from next seat", twoM, Chi, true, true},
		{"chi not from next seat", twoM, Chi, false, false},
		{"chi on honor", tile.Instance(tile.MustParseKinds("Ew")[0], 0), Chi, true, false},
		{"peng without copies", twoM, Peng, false, false},
		{"hu with a full hand", nineP, Hu, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanClaim(hand, tt.discard, tt.kind, tt.nextSeat))
		})
	}
}

func TestCanClaimHu(t *testing.T) {
	hand := tile.MustParse("123m 456m 789m 11p 23s")
	four := tile.Instance(tile.MustParseKinds("4s")[0], 0)
	five := tile.Instance(tile.MustParseKinds("5s")[0], 0)
	assert.True(t, CanClaim(hand, four, Hu, false))
	assert.False(t, CanClaim(hand, five, Hu, false))
	assert.Equal(t, []ClaimKind{Hu, Chi}, Options(hand, four, true))
	assert.Equal(t, []ClaimKind{Hu}, Options(hand, four, false))
}

func TestSupportFor(t *testing.T) {
	hand := tile.MustParse("55p 777s 34m")
	fiveP := tile.Instance(tile.MustParseKinds("5p")[0], 3)
	twoM := tile.Instance(tile.MustParseKinds("2m")[0], 0)
	fiveM := tile.Instance(tile.MustParseKinds("5m")[0], 0)

	support, err := SupportFor(hand, fiveP, Peng, nil)
	require.NoError(t, err)
	assert.Equal(t, "5p 5p", tile.Format(support))

	support, err = SupportFor(hand, twoM, Chi, nil)
	require.NoError(t, err)
	assert.Equal(t, "3m 4m", tile.Format(support))

	// 3m 4m 5m through explicit ids
	support, err = SupportFor(hand, fiveM, Chi, []tile.ID{hand[5].ID(), hand[6].ID()})
	require.NoError(t, err)
	assert.Len(t, support, 2)

	_, err = SupportFor(hand, fiveP, Peng, []tile.ID{hand[0].ID(), 135})
	assert.ErrorIs(t, err, ErrNotHeld)

	_, err = SupportFor(hand, fiveP, Peng, []tile.ID{hand[0].ID(), hand[0].ID()})
	assert.ErrorIs(t, err, ErrNoMeld)

	_, err = SupportFor(hand, fiveP, Peng, []tile.ID{hand[0].ID(), hand[2].ID()})
	assert.ErrorIs(t, err, ErrNoMeld)

	_, err = SupportFor(hand, fiveP, Gang, nil)
	assert.ErrorIs(t, err, ErrNoMeld)

	_, err = SupportFor(hand, fiveP, Hu, nil)
	assert.ErrorIs(t, err, ErrNoMeld)
}

func TestMeldFor(t *testing.T) {
	hand := tile.MustParse("777s")
	seven := tile.Instance(tile.MustParseKinds("7s")[0], 3)
	m := MeldFor(Gang, seven, hand)
	assert.Equal(t, Quad, m.Kind)
	assert.Len(t, m.Tiles, 4)
	assert.Equal(t, seven.Kind(), m.Base())
}

func TestClaimKindPriority(t *testing.T) {
	assert.Greater(t, Hu.Priority(), Gang.Priority())
	assert.Greater(t, Gang.Priority(), Peng.Priority())
	assert.Greater(t, Peng.Priority(), Chi.Priority())

	k, err := ParseClaimKind("PENG")
	require.NoError(t, err)
	assert.Equal(t, Peng, k)
	_, err = ParseClaimKind("ron")
	assert.Error(t, err)
}

func TestMeldJSON(t *testing.T) {
	m := MeldFor(Peng, tile.Instance(tile.MustParseKinds("Rd")[0], 2), tile.MustParse("RdRd"))
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"triplet"`)

	var back Meld
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, m, back)

	var k MeldKind
	assert.Error(t, k.UnmarshalText([]byte("pair")))
}
