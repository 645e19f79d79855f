package match

import (
	"time"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

// EventType names an event on the wire.
type EventType string

const (
	EventPlayerJoined      EventType = "player_joined"
	EventPlayerReady       EventType = "player_ready"
	EventPlayerLeft        EventType = "player_left"
	EventMatchStarted      EventType = "match_started"
	EventHandDealt         EventType = "hand_dealt"
	EventTileDrawn         EventType = "tile_drawn"
	EventTileDiscarded     EventType = "tile_discarded"
	EventClaimWindowOpened EventType = "claim_window_opened"
	EventClaimResolved     EventType = "claim_resolved"
	EventKongDeclared      EventType = "kong_declared"
	EventTurnTimedOut      EventType = "turn_timed_out"
	EventMatchEnded        EventType = "match_ended"
)

func (t EventType) String() string { return string(t) }

// Event is a state change emitted by a match.
type Event interface {
	EventType() EventType
}

// Private is implemented by events that carry information only one player
// may see. Redact returns the form everyone else receives, or nil if they
// receive nothing.
type Private interface {
	Event
	Owner() PlayerID
	Redact() Event
}

type PlayerJoined struct {
	PlayerID  PlayerID  `json:"playerId"`
	Name      string    `json:"name"`
	Seat      seat.Seat `json:"seat"`
	Reconnect bool      `json:"reconnect,omitempty"`
}

type PlayerReady struct {
	PlayerID PlayerID  `json:"playerId"`
	Seat     seat.Seat `json:"seat"`
	Ready    bool      `json:"ready"`
}

// PlayerLeft is emitted when a player leaves. In the lobby the seat is freed;
// once dealt the player stays seated and is marked disconnected.
type PlayerLeft struct {
	PlayerID     PlayerID  `json:"playerId"`
	Seat         seat.Seat `json:"seat"`
	Disconnected bool      `json:"disconnected"`
}

type SeatInfo struct {
	Seat     seat.Seat `json:"seat"`
	PlayerID PlayerID  `json:"playerId"`
	Name     string    `json:"name"`
}

type MatchStarted struct {
	Round   int        `json:"round"`
	Dealer  seat.Seat  `json:"dealer"`
	Players []SeatInfo `json:"players"`
}

type HandDealt struct {
	PlayerID PlayerID    `json:"playerId"`
	Seat     seat.Seat   `json:"seat"`
	Tiles    []tile.Tile `json:"tiles"`
}

type TileDrawn struct {
	PlayerID      PlayerID   `json:"playerId"`
	Seat          seat.Seat  `json:"seat"`
	Tile          *tile.Tile `json:"tile,omitempty"`
	Replacement   bool       `json:"replacement,omitempty"`
	WallRemaining int        `json:"wallRemaining"`
}

type TileDiscarded struct {
	PlayerID PlayerID  `json:"playerId"`
	Seat     seat.Seat `json:"seat"`
	Tile     tile.Tile `json:"tile"`
}

type ClaimWindowOpened struct {
	Discarder seat.Seat   `json:"discarder"`
	Tile      tile.Tile   `json:"tile"`
	Deadline  time.Time   `json:"deadline"`
	Eligible  []seat.Seat `json:"eligible"`
}

// ClaimResolved closes a claim window. Kind is zero when every seat passed.
type ClaimResolved struct {
	Discarder seat.Seat      `json:"discarder"`
	Tile      tile.Tile      `json:"tile"`
	Kind      hand.ClaimKind `json:"kind,omitempty"`
	Seat      *seat.Seat     `json:"seat,omitempty"`
	PlayerID  PlayerID       `json:"playerId,omitempty"`
	Meld      *hand.Meld     `json:"meld,omitempty"`
}

// Claimed reports whether a claim won the window.
func (e ClaimResolved) Claimed() bool { return e.Kind != 0 }

type KongDeclared struct {
	PlayerID PlayerID  `json:"playerId"`
	Seat     seat.Seat `json:"seat"`
	Meld     hand.Meld `json:"meld"`
	Promoted bool      `json:"promoted,omitempty"`
}

type TurnTimedOut struct {
	PlayerID PlayerID  `json:"playerId"`
	Seat     seat.Seat `json:"seat"`
	Phase    Phase     `json:"phase"`
}

type SeatScore struct {
	Seat     seat.Seat `json:"seat"`
	PlayerID PlayerID  `json:"playerId"`
	Delta    int       `json:"delta"`
	Score    int       `json:"score"`
}

type MatchEnded struct {
	Outcome Outcome     `json:"outcome"`
	Scores  []SeatScore `json:"scores"`
}

func (PlayerJoined) EventType() EventType      { return EventPlayerJoined }
func (PlayerReady) EventType() EventType       { return EventPlayerReady }
func (PlayerLeft) EventType() EventType        { return EventPlayerLeft }
func (MatchStarted) EventType() EventType      { return EventMatchStarted }
func (HandDealt) EventType() EventType         { return EventHandDealt }
func (TileDrawn) EventType() EventType         { return EventTileDrawn }
func (TileDiscarded) EventType() EventType     { return EventTileDiscarded }
func (ClaimWindowOpened) EventType() EventType { return EventClaimWindowOpened }
func (ClaimResolved) EventType() EventType     { return EventClaimResolved }
func (KongDeclared) EventType() EventType      { return EventKongDeclared }
func (TurnTimedOut) EventType() EventType      { return EventTurnTimedOut }
func (MatchEnded) EventType() EventType        { return EventMatchEnded }

func (e HandDealt) Owner() PlayerID { return e.PlayerID }
func (e HandDealt) Redact() Event   { return nil }

func (e TileDrawn) Owner() PlayerID { return e.PlayerID }

// Redact hides the tile; everyone sees that a draw happened.
func (e TileDrawn) Redact() Event {
	e.Tile = nil
	return e
}
