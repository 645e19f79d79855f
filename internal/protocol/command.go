package protocol

import (
	"fmt"

	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/tile"
)

// IsCommand reports whether t names a match command.
func IsCommand(t MessageType) bool {
	switch t {
	case TypeJoin, TypeSetReady, TypeDraw, TypeDiscard, TypeClaim,
		TypePass, TypeDeclareKong, TypeDeclareWin, TypeLeave:
		return true
	}
	return false
}

// DecodeCommand turns msg into a command issued by player. The player id
// comes from the connection, never from the payload, except for Join where
// a client may ask to resume a known id.
func DecodeCommand(msg *Message, player match.PlayerID) (match.Command, error) {
	if msg.MatchID == "" {
		return nil, fmt.Errorf("%w: %s: missing matchId", ErrBadRequest, msg.Type)
	}

	switch msg.Type {
	case TypeJoin:
		var data JoinData
		if err := decodeData(msg, &data); err != nil {
			return nil, err
		}
		id := player
		if id == "" {
			id = data.PlayerID
		}
		return match.Join{PlayerID: id, Name: data.Name}, nil

	case TypeSetReady:
		data := SetReadyData{Ready: true}
		if err := decodeData(msg, &data); err != nil {
			return nil, err
		}
		return match.SetReady{PlayerID: player, Ready: data.Ready}, nil

	case TypeDraw:
		return match.Draw{PlayerID: player}, nil

	case TypeDiscard:
		if len(msg.Data) == 0 {
			return nil, fmt.Errorf("%w: discard: missing tile", ErrBadRequest)
		}
		var data DiscardData
		if err := decodeData(msg, &data); err != nil {
			return nil, err
		}
		return match.Discard{PlayerID: player, Tile: data.Tile}, nil

	case TypeClaim:
		var data ClaimData
		if err := decodeData(msg, &data); err != nil {
			return nil, err
		}
		if !data.Kind.Valid() {
			return nil, fmt.Errorf("%w: claim: missing kind", ErrBadRequest)
		}
		var ids []tile.ID
		for _, n := range data.Tiles {
			if n < 0 || n >= tile.SetSize {
				return nil, fmt.Errorf("%w: claim: tile %d out of range", ErrBadRequest, n)
			}
			ids = append(ids, tile.ID(n))
		}
		return match.Claim{PlayerID: player, Kind: data.Kind, Tiles: ids}, nil

	case TypePass:
		return match.Pass{PlayerID: player}, nil

	case TypeDeclareKong:
		if len(msg.Data) == 0 {
			return nil, fmt.Errorf("%w: declare_kong: missing kind", ErrBadRequest)
		}
		var data DeclareKongData
		if err := decodeData(msg, &data); err != nil {
			return nil, err
		}
		return match.DeclareKong{PlayerID: player, Kind: data.Kind}, nil

	case TypeDeclareWin:
		return match.DeclareWin{PlayerID: player}, nil

	case TypeLeave:
		return match.Leave{PlayerID: player}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
}

// EncodeCommand is the client side of DecodeCommand.
func EncodeCommand(matchID string, cmd match.Command) (*Message, error) {
	var data any
	switch c := cmd.(type) {
	case match.Join:
		data = JoinData{PlayerID: c.PlayerID, Name: c.Name}
	case match.SetReady:
		data = SetReadyData{Ready: c.Ready}
	case match.Discard:
		data = DiscardData{Tile: c.Tile}
	case match.Claim:
		d := ClaimData{Kind: c.Kind}
		for _, id := range c.Tiles {
			d.Tiles = append(d.Tiles, int(id))
		}
		data = d
	case match.DeclareKong:
		data = DeclareKongData{Kind: c.Kind}
	case match.Draw, match.Pass, match.DeclareWin, match.Leave:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessageType, cmd)
	}
	return NewMessage(MessageType(cmd.Name()), matchID, data)
}
