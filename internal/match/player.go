package match

import (
	"slices"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

type player struct {
	id        PlayerID
	name      string
	seat      seat.Seat
	hand      []tile.Tile
	melds     []hand.Meld
	discards  []tile.Tile
	drawn     *tile.Tile
	score     int
	ready     bool
	connected bool
}

func (p *player) index(id tile.ID) int {
	return slices.IndexFunc(p.hand, func(t tile.Tile) bool { return t.ID() == id })
}

func (p *player) remove(tiles ...tile.Tile) {
	for _, t := range tiles {
		if i := p.index(t.ID()); i >= 0 {
			p.hand = slices.Delete(p.hand, i, i+1)
		}
	}
}

func (p *player) ofKind(k tile.Kind) []tile.Tile {
	var out []tile.Tile
	for _, t := range p.hand {
		if t.Kind() == k {
			out = append(out, t)
		}
	}
	return out
}

// size counts every exposed meld as three tiles; a quad's fourth tile is
// paid back by its replacement draw.
func (p *player) size() int {
	return len(p.hand) + 3*len(p.melds)
}

// autoDiscard picks the tile thrown for a player who is not acting: the
// tile they just drew, otherwise the last tile in their hand.
func (p *player) autoDiscard() tile.Tile {
	if p.drawn != nil && p.index(p.drawn.ID()) >= 0 {
		return *p.drawn
	}
	return p.hand[len(p.hand)-1]
}

func (p *player) state() PlayerState {
	melds := make([]hand.Meld, len(p.melds))
	for i, m := range p.melds {
		m.Tiles = slices.Clone(m.Tiles)
		melds[i] = m
	}
	return PlayerState{
		ID:        p.id,
		Name:      p.name,
		Seat:      p.seat,
		Hand:      slices.Clone(p.hand),
		Melds:     melds,
		Discards:  slices.Clone(p.discards),
		Score:     p.score,
		Ready:     p.ready,
		Connected: p.connected,
	}
}
