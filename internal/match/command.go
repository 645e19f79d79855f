package match

import (
	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

// PlayerID identifies a player. The transport authenticates commands to an
// id before they reach a match.
type PlayerID string

// Command is one of the player commands below. The set is closed.
type Command interface {
	// Name is the wire name of the command.
	Name() string
	isCommand()
}

// Join takes the next free seat. An empty PlayerID is assigned one. Joining
// again with the id of a disconnected player reconnects them.
type Join struct {
	PlayerID PlayerID
	Name     string
}

type SetReady struct {
	PlayerID PlayerID
	Ready    bool
}

type Draw struct {
	PlayerID PlayerID
}

type Discard struct {
	PlayerID PlayerID
	Tile     tile.ID
}

// Claim bids for the pending discard. Tiles names the supporting tiles from
// the hand; when empty they are chosen automatically.
type Claim struct {
	PlayerID PlayerID
	Kind     hand.ClaimKind
	Tiles    []tile.ID
}

type Pass struct {
	PlayerID PlayerID
}

// DeclareKong declares a concealed quad of Kind, or promotes an exposed
// triplet of Kind with the fourth tile from the hand.
type DeclareKong struct {
	PlayerID PlayerID
	Kind     tile.Kind
}

// DeclareWin claims a self-drawn win on the player's own turn.
type DeclareWin struct {
	PlayerID PlayerID
}

type Leave struct {
	PlayerID PlayerID
}

func (Join) Name() string        { return "join" }
func (SetReady) Name() string    { return "set_ready" }
func (Draw) Name() string        { return "draw" }
func (Discard) Name() string     { return "discard" }
func (Claim) Name() string       { return "claim" }
func (Pass) Name() string        { return "pass" }
func (DeclareKong) Name() string { return "declare_kong" }
func (DeclareWin) Name() string  { return "declare_win" }
func (Leave) Name() string       { return "leave" }

func (Join) isCommand()        {}
func (SetReady) isCommand()    {}
func (Draw) isCommand()        {}
func (Discard) isCommand()     {}
func (Claim) isCommand()       {}
func (Pass) isCommand()        {}
func (DeclareKong) isCommand() {}
func (DeclareWin) isCommand()  {}
func (Leave) isCommand()       {}

// Result is returned by a successful command. Only Join fills it in.
type Result struct {
	PlayerID PlayerID
	Seat     seat.Seat
}
