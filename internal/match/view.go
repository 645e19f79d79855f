package match

import (
	"slices"
	"time"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

// PlayerState is a copy of one seated player.
type PlayerState struct {
	ID        PlayerID    `json:"id"`
	Name      string      `json:"name"`
	Seat      seat.Seat   `json:"seat"`
	Hand      []tile.Tile `json:"hand,omitempty"`
	Melds     []hand.Meld `json:"melds,omitempty"`
	Discards  []tile.Tile `json:"discards,omitempty"`
	Score     int         `json:"score"`
	Ready     bool        `json:"ready"`
	Connected bool        `json:"connected"`
}

// TileCount is every tile the player holds, concealed or exposed.
func (p PlayerState) TileCount() int {
	n := len(p.Hand)
	for _, m := range p.Melds {
		n += len(m.Tiles)
	}
	return n
}

// Snapshot is a full copy of a game, for operators and tests.
type Snapshot struct {
	ID            string        `json:"id"`
	Phase         Phase         `json:"phase"`
	Turn          seat.Seat     `json:"turn"`
	Dealer        seat.Seat     `json:"dealer"`
	Round         int           `json:"round"`
	Step          uint64        `json:"step"`
	Seed          int64         `json:"seed"`
	Players       []PlayerState `json:"players"`
	WallRemaining int           `json:"wallRemaining"`
	Pile          []tile.Tile   `json:"pile,omitempty"`
	Pending       *tile.Tile    `json:"pending,omitempty"`
	Deadline      time.Time     `json:"deadline,omitzero"`
	Outcome       *Outcome      `json:"outcome,omitempty"`
}

// TileCount sums the wall, the discard pile and every player's tiles.
func (s Snapshot) TileCount() int {
	n := s.WallRemaining + len(s.Pile)
	for _, p := range s.Players {
		n += p.TileCount()
	}
	return n
}

// Player returns the state of the player seated at st.
func (s Snapshot) Player(st seat.Seat) (PlayerState, bool) {
	for _, p := range s.Players {
		if p.Seat == st {
			return p, true
		}
	}
	return PlayerState{}, false
}

// Snapshot copies the full game state.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		ID:       g.id,
		Phase:    g.phase,
		Turn:     g.turn,
		Dealer:   g.dealer,
		Round:    g.round,
		Step:     g.step,
		Seed:     g.seed,
		Pile:     slices.Clone(g.pile),
		Deadline: g.deadline,
	}
	if g.wall != nil {
		s.WallRemaining = g.wall.Remaining()
	}
	for _, p := range g.seats {
		if p != nil {
			s.Players = append(s.Players, p.state())
		}
	}
	if g.arbiter != nil {
		t := g.arbiter.Tile()
		s.Pending = &t
	}
	if g.outcome != nil {
		o := *g.outcome
		s.Outcome = &o
	}
	return s
}

// Opponent is what a player may see of another seat.
type Opponent struct {
	Seat      seat.Seat   `json:"seat"`
	PlayerID  PlayerID    `json:"playerId"`
	Name      string      `json:"name"`
	HandSize  int         `json:"handSize"`
	Melds     []hand.Meld `json:"melds,omitempty"`
	Discards  []tile.Tile `json:"discards,omitempty"`
	Score     int         `json:"score"`
	Connected bool        `json:"connected"`
}

// View is the part of a game one player is allowed to see, with the moves
// currently open to them.
type View struct {
	MatchID       string      `json:"matchId"`
	Phase         Phase       `json:"phase"`
	Turn          seat.Seat   `json:"turn"`
	Dealer        seat.Seat   `json:"dealer"`
	WallRemaining int         `json:"wallRemaining"`
	Pile          []tile.Tile `json:"pile,omitempty"`
	Pending       *tile.Tile  `json:"pending,omitempty"`
	Deadline      time.Time   `json:"deadline,omitzero"`
	Self          PlayerState `json:"self"`
	Opponents     []Opponent  `json:"opponents"`
	Outcome       *Outcome    `json:"outcome,omitempty"`

	// MustRespond is set while the claim window waits on this player.
	MustRespond bool `json:"mustRespond,omitempty"`
	// Claims lists the claims the player may make on Pending, best first.
	Claims []hand.ClaimKind `json:"claims,omitempty"`
	// Kongs lists the kinds the player may declare a quad of.
	Kongs  []tile.Kind `json:"kongs,omitempty"`
	CanWin bool        `json:"canWin,omitempty"`
}

// MustDraw reports whether the player is expected to draw.
func (v View) MustDraw() bool {
	return v.Phase == AwaitingDraw && v.Turn == v.Self.Seat
}

// MustDiscard reports whether the player is expected to discard.
func (v View) MustDiscard() bool {
	return v.Phase == AwaitingDiscard && v.Turn == v.Self.Seat
}

// View returns what the player id may see.
func (g *Game) View(id PlayerID) (View, error) {
	p, err := g.lookup(id)
	if err != nil {
		return View{}, err
	}
	s := g.Snapshot()
	v := View{
		MatchID:       s.ID,
		Phase:         s.Phase,
		Turn:          s.Turn,
		Dealer:        s.Dealer,
		WallRemaining: s.WallRemaining,
		Pile:          s.Pile,
		Pending:       s.Pending,
		Deadline:      s.Deadline,
		Outcome:       s.Outcome,
	}
	for _, ps := range s.Players {
		if ps.ID == p.id {
			v.Self = ps
			continue
		}
		v.Opponents = append(v.Opponents, Opponent{
			Seat:      ps.Seat,
			PlayerID:  ps.ID,
			Name:      ps.Name,
			HandSize:  len(ps.Hand),
			Melds:     ps.Melds,
			Discards:  ps.Discards,
			Score:     ps.Score,
			Connected: ps.Connected,
		})
	}

	switch {
	case g.phase == AwaitingClaims && g.arbiter.Pending(p.seat):
		fromNext := p.seat == g.arbiter.Discarder().Next()
		v.MustRespond = true
		v.Claims = hand.Options(p.hand, g.arbiter.Tile(), fromNext)
	case g.phase == AwaitingDiscard && g.turn == p.seat:
		v.CanWin = p.drawn != nil && hand.IsWinningHand(p.hand)
		v.Kongs = g.kongOptions(p)
	}
	return v, nil
}

func (g *Game) kongOptions(p *player) []tile.Kind {
	counts := hand.CountsOf(p.hand)
	var kinds []tile.Kind
	for k, n := range counts {
		if n == tile.Copies {
			kinds = append(kinds, tile.Kind(k))
		}
	}
	for _, m := range p.melds {
		if m.Kind == hand.Triplet && counts[m.Base()] == 1 {
			kinds = append(kinds, m.Base())
		}
	}
	slices.Sort(kinds)
	return kinds
}
