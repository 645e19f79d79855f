// Package tile defines the mahjong tile set and the wall tiles are drawn from.
//
// A Tile is an immutable value. Rules compare tiles by Kind (suit and rank);
// the instance ID only distinguishes the four physical copies of each kind.
package tile

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit is the family a tile belongs to.
type Suit uint8

const (
	Characters Suit = iota
	Bamboo
	Circles
	Wind
	Dragon
)

var suitNames = [...]string{"characters", "bamboo", "circles", "wind", "dragon"}

// suffix used by the compact notation for numbered suits
var suitLetters = [...]byte{'m', 's', 'p'}

func (s Suit) String() string {
	if int(s) < len(suitNames) {
		return suitNames[s]
	}
	return fmt.Sprintf("suit(%d)", s)
}

// Numbered reports whether the suit has ranks 1-9 and can form runs.
func (s Suit) Numbered() bool {
	return s <= Circles
}

// ranksIn is the number of ranks in the suit.
func (s Suit) ranksIn() int {
	switch {
	case s.Numbered():
		return 9
	case s == Wind:
		return 4
	default:
		return 3
	}
}

// Rank is 1-9 for numbered suits, one of the wind or dragon constants
// otherwise.
type Rank uint8

// Honor ranks.
const (
	EastWind Rank = iota + 1
	SouthWind
	WestWind
	NorthWind
)

const (
	RedDragon Rank = iota + 1
	GreenDragon
	WhiteDragon
)

// Kind identifies a tile by suit and rank. Kinds are laid out as
// 1m..9m, 1s..9s, 1p..9p, Ew Sw Ww Nw, Rd Gd Wd so that consecutive
// numbered kinds within a suit are consecutive integers.
type Kind uint8

const (
	// NumKinds is the number of distinct kinds in the standard set.
	NumKinds = 34
	// Copies is the number of physical tiles per kind.
	Copies = 4
	// SetSize is the number of tiles in the standard set.
	SetSize = NumKinds * Copies
)

const (
	windBase   Kind = 27
	dragonBase Kind = 31
)

var honorCodes = [...]string{"Ew", "Sw", "Ww", "Nw", "Rd", "Gd", "Wd"}

// KindOf returns the kind for a suit and rank. It panics on a rank outside
// the suit; use ParseKind for untrusted input.
func KindOf(s Suit, r Rank) Kind {
	if r < 1 || int(r) > s.ranksIn() {
		panic(fmt.Sprintf("tile: rank %d out of range for %s", r, s))
	}
	switch s {
	case Wind:
		return windBase + Kind(r-1)
	case Dragon:
		return dragonBase + Kind(r-1)
	default:
		return Kind(s)*9 + Kind(r-1)
	}
}

// Suit returns the suit of the kind.
func (k Kind) Suit() Suit {
	switch {
	case k < windBase:
		return Suit(k / 9)
	case k < dragonBase:
		return Wind
	default:
		return Dragon
	}
}

// Rank returns the rank of the kind within its suit.
func (k Kind) Rank() Rank {
	switch {
	case k < windBase:
		return Rank(k%9) + 1
	case k < dragonBase:
		return Rank(k-windBase) + 1
	default:
		return Rank(k-dragonBase) + 1
	}
}

// Valid reports whether k is one of the 34 kinds.
func (k Kind) Valid() bool {
	return k < NumKinds
}

// String returns the two character notation, e.g. "5p" or "Rd".
func (k Kind) String() string {
	if !k.Valid() {
		return "??"
	}
	if k < windBase {
		return fmt.Sprintf("%d%c", k.Rank(), suitLetters[k.Suit()])
	}
	return honorCodes[k-windBase]
}

// ID is the instance identifier of a physical tile, 0..135.
type ID uint8

// Tile is one physical tile.
type Tile struct {
	id   ID
	kind Kind
}

// New returns the tile with the given instance id. The kind is implied by
// the id: copies of a kind occupy ids kind*4 .. kind*4+3.
func New(id ID) Tile {
	return Tile{id: id, kind: Kind(id / Copies)}
}

// Instance returns the n-th copy (0-3) of kind k.
func Instance(k Kind, n int) Tile {
	return New(ID(int(k)*Copies + n))
}

func (t Tile) ID() ID     { return t.id }
func (t Tile) Kind() Kind { return t.kind }
func (t Tile) Suit() Suit { return t.kind.Suit() }
func (t Tile) Rank() Rank { return t.kind.Rank() }

// String returns the kind notation followed by the instance id, e.g. "5p#77".
func (t Tile) String() string {
	return fmt.Sprintf("%s#%d", t.kind, t.id)
}

// ParseKind parses the two character notation produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid tile %q", s)
	}
	for i, code := range honorCodes {
		if strings.EqualFold(s, code) {
			return windBase + Kind(i), nil
		}
	}
	if s[0] < '1' || s[0] > '9' {
		return 0, fmt.Errorf("invalid rank in tile %q", s)
	}
	rank := Rank(s[0] - '0')
	for suit, letter := range suitLetters {
		if s[1] == letter {
			return KindOf(Suit(suit), rank), nil
		}
	}
	return 0, fmt.Errorf("invalid suit in tile %q", s)
}

// ParseKinds parses a whitespace separated list of groups. A group is either
// digits followed by a suit letter ("123m", "55p") or a run of honor codes
// ("EwEwEw", "RdRd").
func ParseKinds(s string) ([]Kind, error) {
	var kinds []Kind
	for _, group := range strings.Fields(s) {
		if len(group) < 2 {
			return nil, fmt.Errorf("invalid group %q", group)
		}
		last := group[len(group)-1]
		if last == 'm' || last == 's' || last == 'p' {
			for i := 0; i < len(group)-1; i++ {
				k, err := ParseKind(string([]byte{group[i], last}))
				if err != nil {
					return nil, err
				}
				kinds = append(kinds, k)
			}
			continue
		}
		if len(group)%2 != 0 {
			return nil, fmt.Errorf("invalid honor group %q", group)
		}
		for i := 0; i < len(group); i += 2 {
			k, err := ParseKind(group[i : i+2])
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// MustParseKinds is ParseKinds for literals in tests and tables.
func MustParseKinds(s string) []Kind {
	kinds, err := ParseKinds(s)
	if err != nil {
		panic(err)
	}
	return kinds
}

// FromKinds materialises kinds as distinct tiles, taking copies of each kind
// in id order. It fails if a kind is requested more than four times.
func FromKinds(kinds []Kind) ([]Tile, error) {
	var used [NumKinds]int
	tiles := make([]Tile, 0, len(kinds))
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("invalid kind %d", k)
		}
		if used[k] == Copies {
			return nil, fmt.Errorf("more than %d copies of %s", Copies, k)
		}
		tiles = append(tiles, Instance(k, used[k]))
		used[k]++
	}
	return tiles, nil
}

// MustParse returns tiles for the notation accepted by ParseKinds.
func MustParse(s string) []Tile {
	tiles, err := FromKinds(MustParseKinds(s))
	if err != nil {
		panic(err)
	}
	return tiles
}

// Kinds returns the kinds of tiles in order.
func Kinds(tiles []Tile) []Kind {
	kinds := make([]Kind, len(tiles))
	for i, t := range tiles {
		kinds[i] = t.kind
	}
	return kinds
}

// Format renders tiles as space separated kind notation.
func Format(tiles []Tile) string {
	parts := make([]string, len(tiles))
	for i, t := range tiles {
		parts[i] = t.kind.String()
	}
	return strings.Join(parts, " ")
}

// MarshalText implements encoding.TextMarshaler using the compact notation.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

type wireTile struct {
	ID   ID   `json:"id"`
	Kind Kind `json:"kind"`
}

// MarshalJSON encodes a tile as {"id":77,"kind":"5p"}.
func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTile{ID: t.id, Kind: t.kind})
}

// UnmarshalJSON accepts the form produced by MarshalJSON. The kind is
// derived from the id; a mismatching kind is rejected.
func (t *Tile) UnmarshalJSON(b []byte) error {
	var w wireTile
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if int(w.ID) >= SetSize {
		return fmt.Errorf("tile id %d out of range", w.ID)
	}
	v := New(w.ID)
	if v.kind != w.Kind {
		return fmt.Errorf("tile id %d is %s, not %s", w.ID, v.kind, w.Kind)
	}
	*t = v
	return nil
}
