package match

import "errors"

var (
	ErrMatchFull     = errors.New("match is full")
	ErrInvalidPhase  = errors.New("command not allowed in this phase")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrTileNotHeld   = errors.New("tile not held")
	ErrIllegalClaim  = errors.New("illegal claim")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrMatchClosed   = errors.New("match is closed")
)
