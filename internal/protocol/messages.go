// Package protocol is the JSON wire format spoken over the WebSocket
// transport. Every frame is a Message; its Data is decoded according to
// Type.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/supervisor"
	"github.com/lox/mahjongforbots/internal/tile"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeCreateMatch MessageType = "create_match"
	TypeListMatches MessageType = "list_matches"
	TypeView        MessageType = "view"
	TypeJoin        MessageType = "join"
	TypeSetReady    MessageType = "set_ready"
	TypeDraw        MessageType = "draw"
	TypeDiscard     MessageType = "discard"
	TypeClaim       MessageType = "claim"
	TypePass        MessageType = "pass"
	TypeDeclareKong MessageType = "declare_kong"
	TypeDeclareWin  MessageType = "declare_win"
	TypeLeave       MessageType = "leave"

	// Server -> Client
	TypeAck          MessageType = "ack"
	TypeMatchCreated MessageType = "match_created"
	TypeMatchList    MessageType = "match_list"
	TypeError        MessageType = "error"
)

func (t MessageType) String() string { return string(t) }

// Message is one frame. Events are sent with the event's name as Type and
// carry the envelope's Seq and At.
type Message struct {
	Type      MessageType     `json:"type"`
	MatchID   string          `json:"matchId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	At        time.Time       `json:"at,omitzero"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message with data encoded as its payload.
func NewMessage(t MessageType, matchID string, data any) (*Message, error) {
	msg := &Message{Type: t, MatchID: matchID}
	if data == nil {
		return msg, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	msg.Data = b
	return msg, nil
}

// Reply creates a response to req, echoing its match and request ids.
func Reply(req *Message, t MessageType, data any) (*Message, error) {
	msg, err := NewMessage(t, req.MatchID, data)
	if err != nil {
		return nil, err
	}
	msg.RequestID = req.RequestID
	return msg, nil
}

// Client -> Server payloads

type JoinData struct {
	PlayerID match.PlayerID `json:"playerId,omitempty"`
	Name     string         `json:"name,omitempty"`
}

type SetReadyData struct {
	Ready bool `json:"ready"`
}

type DiscardData struct {
	Tile tile.ID `json:"tile"`
}

// ClaimData names the supporting tiles by id. They are plain ints so
// the list is a JSON array rather than base64.
type ClaimData struct {
	Kind  hand.ClaimKind `json:"kind"`
	Tiles []int          `json:"tiles,omitempty"`
}

type DeclareKongData struct {
	Kind tile.Kind `json:"kind"`
}

// Server -> Client payloads

type AckData struct {
	Command  string         `json:"command"`
	PlayerID match.PlayerID `json:"playerId,omitempty"`
	Seat     *seat.Seat     `json:"seat,omitempty"`
}

type MatchCreatedData struct {
	MatchID string `json:"matchId"`
}

type MatchListData struct {
	Matches []supervisor.Summary `json:"matches"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
