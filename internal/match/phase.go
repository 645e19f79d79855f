package match

import (
	"fmt"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

// Phase is the state of a match.
type Phase uint8

const (
	Lobby Phase = iota
	Dealing
	AwaitingDraw
	AwaitingDiscard
	AwaitingClaims
	Ended
)

var phaseNames = [...]string{
	Lobby:           "lobby",
	Dealing:         "dealing",
	AwaitingDraw:    "awaiting_draw",
	AwaitingDiscard: "awaiting_discard",
	AwaitingClaims:  "awaiting_claims",
	Ended:           "ended",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", p)
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// EndReason says why a match ended.
type EndReason string

const (
	ReasonWin                EndReason = "win"
	ReasonWallExhausted      EndReason = "wall_exhausted"
	ReasonAbandoned          EndReason = "abandoned"
	ReasonCancelled          EndReason = "cancelled"
	ReasonInvariantViolation EndReason = "invariant_violation"
)

// Outcome is the terminal result of a match. Winner is empty for a draw.
type Outcome struct {
	Reason      EndReason       `json:"reason"`
	Winner      PlayerID        `json:"winner,omitempty"`
	WinnerSeat  *seat.Seat      `json:"winnerSeat,omitempty"`
	SelfDrawn   bool            `json:"selfDrawn,omitempty"`
	Discarder   *seat.Seat      `json:"discarder,omitempty"`
	WinningTile *tile.Tile      `json:"winningTile,omitempty"`
	Partition   *hand.Partition `json:"partition,omitempty"`
	Detail      string          `json:"detail,omitempty"`
}

// Draw reports whether the match ended without a winner.
func (o Outcome) Draw() bool { return o.Winner == "" }
