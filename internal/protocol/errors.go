package protocol

import (
	"encoding/json"
	"errors"

	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/supervisor"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Stable error codes sent to clients.
const (
	CodeMatchFull     = "match_full"
	CodeInvalidPhase  = "invalid_phase"
	CodeNotYourTurn   = "not_your_turn"
	CodeTileNotHeld   = "tile_not_held"
	CodeIllegalClaim  = "illegal_claim"
	CodeMatchNotFound = "match_not_found"
	CodeUnknownPlayer = "unknown_player"
	CodeMatchClosed   = "match_closed"
	CodeBadRequest    = "bad_request"
	CodeInternal      = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{match.ErrMatchFull, CodeMatchFull},
	{match.ErrInvalidPhase, CodeInvalidPhase},
	{match.ErrNotYourTurn, CodeNotYourTurn},
	{match.ErrTileNotHeld, CodeTileNotHeld},
	{match.ErrIllegalClaim, CodeIllegalClaim},
	{match.ErrUnknownPlayer, CodeUnknownPlayer},
	{match.ErrMatchClosed, CodeMatchClosed},
	{supervisor.ErrMatchNotFound, CodeMatchNotFound},
	{supervisor.ErrClosed, CodeMatchClosed},
	{ErrBadRequest, CodeBadRequest},
	{ErrUnknownMessageType, CodeBadRequest},
}

// ErrorCode maps err to its wire code.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// NewError creates an error reply to req. A nil req yields an unsolicited
// error frame.
func NewError(req *Message, err error) *Message {
	msg := &Message{Type: TypeError}
	if req != nil {
		msg.MatchID = req.MatchID
		msg.RequestID = req.RequestID
	}
	data, _ := json.Marshal(ErrorData{Code: ErrorCode(err), Message: err.Error()})
	msg.Data = data
	return msg
}

// RemoteError is an error frame received from the server.
type RemoteError struct {
	Code    string
	Message string
	err     error
}

func (e *RemoteError) Error() string { return e.Message }

// Unwrap returns the sentinel the code stands for, if any.
func (e *RemoteError) Unwrap() error { return e.err }

// Err turns a received error payload back into an error that matches the
// sentinel for its code.
func (d ErrorData) Err() error {
	re := &RemoteError{Code: d.Code, Message: d.Message}
	for _, c := range codes {
		if c.code == d.Code {
			re.err = c.err
			break
		}
	}
	if re.Message == "" {
		re.Message = d.Code
	}
	return re
}
