package hand

import (
	"fmt"
	"strings"

	"github.com/lox/mahjongforbots/internal/tile"
)

// MeldKind is the shape of a meld.
type MeldKind uint8

const (
	Run MeldKind = iota + 1
	Triplet
	Quad
)

func (k MeldKind) String() string {
	switch k {
	case Run:
		return "run"
	case Triplet:
		return "triplet"
	case Quad:
		return "quad"
	}
	return fmt.Sprintf("meld(%d)", k)
}

func (k MeldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MeldKind) UnmarshalText(b []byte) error {
	for _, m := range []MeldKind{Run, Triplet, Quad} {
		if string(b) == m.String() {
			*k = m
			return nil
		}
	}
	return fmt.Errorf("unknown meld kind %q", b)
}

// Meld is a committed group of tiles.
type Meld struct {
	Kind  MeldKind    `json:"kind"`
	Tiles []tile.Tile `json:"tiles"`
	// Concealed is set for a quad declared entirely from the hand.
	Concealed bool `json:"concealed,omitempty"`
}

// Base returns the lowest kind in the meld.
func (m Meld) Base() tile.Kind {
	base := m.Tiles[0].Kind()
	for _, t := range m.Tiles[1:] {
		if t.Kind() < base {
			base = t.Kind()
		}
	}
	return base
}

func (m Meld) String() string {
	var b strings.Builder
	b.WriteString(m.Kind.String())
	b.WriteByte('(')
	b.WriteString(tile.Format(m.Tiles))
	b.WriteByte(')')
	return b.String()
}

// ClaimKind is what a player takes a discarded tile for.
type ClaimKind uint8

// Declared in ascending priority so kinds compare directly.
const (
	Chi ClaimKind = iota + 1
	Peng
	Gang
	Hu
)

var claimNames = map[ClaimKind]string{Chi: "chi", Peng: "peng", Gang: "gang", Hu: "hu"}

func (k ClaimKind) String() string {
	if n, ok := claimNames[k]; ok {
		return n
	}
	return fmt.Sprintf("claim(%d)", k)
}

// Priority orders claims on a single discard: hu > gang > peng > chi.
func (k ClaimKind) Priority() int {
	return int(k)
}

// Valid reports whether k is one of the four claim kinds.
func (k ClaimKind) Valid() bool {
	return k >= Chi && k <= Hu
}

// ParseClaimKind parses the names produced by String.
func ParseClaimKind(s string) (ClaimKind, error) {
	for k, n := range claimNames {
		if strings.EqualFold(s, n) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown claim kind %q", s)
}

func (k ClaimKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid claim kind %d", k)
	}
	return []byte(k.String()), nil
}

func (k *ClaimKind) UnmarshalText(b []byte) error {
	v, err := ParseClaimKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// meldOf is the meld a resolved claim of kind k produces.
func meldOf(k ClaimKind) MeldKind {
	switch k {
	case Chi:
		return Run
	case Gang:
		return Quad
	default:
		return Triplet
	}
}
