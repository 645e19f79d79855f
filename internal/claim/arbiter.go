// Package claim arbitrates the claims players make on a single discard.
//
// An Arbiter is created when a tile is discarded. Every eligible seat may
// respond once, with a claim or a pass. The window is decided early when
// nothing can change the outcome any more; otherwise the owner resolves it
// when its deadline passes.
package claim

import (
	"errors"
	"fmt"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

var (
	ErrNotEligible      = errors.New("seat may not claim this discard")
	ErrAlreadyResponded = errors.New("seat has already responded")
	ErrChiNotNextSeat   = errors.New("chi is only allowed from the next seat")
	ErrWindowClosed     = errors.New("claim window is closed")
)

// Claim is one seat's bid for the discarded tile. Support holds the tiles
// from the claimant's hand the meld would consume.
type Claim struct {
	Seat    seat.Seat
	Kind    hand.ClaimKind
	Support []tile.Tile
}

func (c Claim) String() string {
	return fmt.Sprintf("%s by %s", c.Kind, c.Seat)
}

// Arbiter collects responses to one discard. It is not safe for concurrent
// use; the owning match serialises access.
type Arbiter struct {
	discarder seat.Seat
	discarded tile.Tile
	eligible  map[seat.Seat]bool
	responded map[seat.Seat]bool
	claims    map[seat.Seat]Claim
	closed    bool
}

// NewArbiter opens a window for discarded, thrown by discarder. Only the
// seats in eligible may respond; the discarder is never eligible.
func NewArbiter(discarder seat.Seat, discarded tile.Tile, eligible []seat.Seat) *Arbiter {
	a := &Arbiter{
		discarder: discarder,
		discarded: discarded,
		eligible:  make(map[seat.Seat]bool, len(eligible)),
		responded: make(map[seat.Seat]bool, len(eligible)),
		claims:    make(map[seat.Seat]Claim, len(eligible)),
	}
	for _, s := range eligible {
		if s != discarder && s.Valid() {
			a.eligible[s] = true
		}
	}
	return a
}

// Discarder returns the seat that threw the tile.
func (a *Arbiter) Discarder() seat.Seat { return a.discarder }

// Tile returns the discarded tile under arbitration.
func (a *Arbiter) Tile() tile.Tile { return a.discarded }

// Pending reports whether s may still respond.
func (a *Arbiter) Pending(s seat.Seat) bool {
	return !a.closed && a.eligible[s] && !a.responded[s]
}

func (a *Arbiter) check(s seat.Seat) error {
	switch {
	case a.closed:
		return ErrWindowClosed
	case !a.eligible[s]:
		return ErrNotEligible
	case a.responded[s]:
		return ErrAlreadyResponded
	}
	return nil
}

// Submit records a claim. Legality of the claim against the claimant's hand
// is the caller's concern; the arbiter only enforces who may respond.
func (a *Arbiter) Submit(c Claim) error {
	if err := a.check(c.Seat); err != nil {
		return err
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("invalid claim kind %d", c.Kind)
	}
	if c.Kind == hand.Chi && c.Seat != a.discarder.Next() {
		return ErrChiNotNextSeat
	}
	a.responded[c.Seat] = true
	a.claims[c.Seat] = c
	return nil
}

// Pass records that s declines the discard.
func (a *Arbiter) Pass(s seat.Seat) error {
	if err := a.check(s); err != nil {
		return err
	}
	a.responded[s] = true
	return nil
}

// Withdraw treats a seat that left the table as having passed. It is a
// no-op when the seat already responded.
func (a *Arbiter) Withdraw(s seat.Seat) {
	if a.Pending(s) {
		a.responded[s] = true
	}
}

// Decided reports whether the outcome can no longer change: every eligible
// seat has responded, or a hu is held and every seat nearer the discarder
// has responded, so no later response can outrank it.
func (a *Arbiter) Decided() bool {
	if a.closed {
		return true
	}
	for _, s := range seat.Order(a.discarder) {
		if c, ok := a.claims[s]; ok && c.Kind == hand.Hu {
			return true
		}
		if a.Pending(s) {
			return false
		}
	}
	return true
}

// Resolve closes the window and returns the winning claim, if any.
// Priority is hu > gang > peng > chi; equal kinds go to the seat nearest
// after the discarder.
func (a *Arbiter) Resolve() (Claim, bool) {
	a.closed = true
	var (
		best  Claim
		found bool
	)
	// Seat order is nearest first, so a strict comparison keeps the nearest
	// seat among equals.
	for _, s := range seat.Order(a.discarder) {
		c, ok := a.claims[s]
		if !ok {
			continue
		}
		if !found || c.Kind.Priority() > best.Kind.Priority() {
			best, found = c, true
		}
	}
	return best, found
}

// Claims returns the recorded claims nearest seat first.
func (a *Arbiter) Claims() []Claim {
	var out []Claim
	for _, s := range seat.Order(a.discarder) {
		if c, ok := a.claims[s]; ok {
			out = append(out, c)
		}
	}
	return out
}
