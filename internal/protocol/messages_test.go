package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/supervisor"
	"github.com/lox/mahjongforbots/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, raw string) *Message {
	t.Helper()
	msg, err := Unmarshal([]byte(raw))
	require.NoError(t, err)
	return msg
}

func TestUnmarshalRejectsBadFrames(t *testing.T) {
	for _, raw := range []string{`not json`, `{}`, `{"type":""}`, `[1,2]`} {
		_, err := Unmarshal([]byte(raw))
		assert.ErrorIs(t, err, ErrBadRequest, raw)
	}
}

func TestMarshalFrame(t *testing.T) {
	msg, err := NewMessage(TypeMatchCreated, "m_1", MatchCreatedData{MatchID: "m_1"})
	require.NoError(t, err)
	msg.RequestID = "r1"

	b, err := Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"match_created","matchId":"m_1","requestId":"r1","data":{"matchId":"m_1"}}`, string(b))
	assert.NotEqual(t, byte('\n'), b[len(b)-1])

	_, err = Marshal(&Message{})
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		player match.PlayerID
		want   match.Command
	}{
		{
			name:   "join binds the connection's player",
			raw:    `{"type":"join","matchId":"m","data":{"playerId":"mallory","name":"Alice"}}`,
			player: "alice",
			want:   match.Join{PlayerID: "alice", Name: "Alice"},
		},
		{
			name: "join resumes a requested id",
			raw:  `{"type":"join","matchId":"m","data":{"playerId":"p_1"}}`,
			want: match.Join{PlayerID: "p_1"},
		},
		{
			name:   "ready defaults to true",
			raw:    `{"type":"set_ready","matchId":"m"}`,
			player: "alice",
			want:   match.SetReady{PlayerID: "alice", Ready: true},
		},
		{
			name:   "unready",
			raw:    `{"type":"set_ready","matchId":"m","data":{"ready":false}}`,
			player: "alice",
			want:   match.SetReady{PlayerID: "alice"},
		},
		{
			name:   "draw",
			raw:    `{"type":"draw","matchId":"m"}`,
			player: "alice",
			want:   match.Draw{PlayerID: "alice"},
		},
		{
			name:   "discard",
			raw:    `{"type":"discard","matchId":"m","data":{"tile":77}}`,
			player: "alice",
			want:   match.Discard{PlayerID: "alice", Tile: 77},
		},
		{
			name:   "claim with support",
			raw:    `{"type":"claim","matchId":"m","data":{"kind":"peng","tiles":[8,9]}}`,
			player: "alice",
			want:   match.Claim{PlayerID: "alice", Kind: hand.Peng, Tiles: []tile.ID{8, 9}},
		},
		{
			name:   "claim hu",
			raw:    `{"type":"claim","matchId":"m","data":{"kind":"hu"}}`,
			player: "alice",
			want:   match.Claim{PlayerID: "alice", Kind: hand.Hu},
		},
		{
			name:   "declare kong",
			raw:    `{"type":"declare_kong","matchId":"m","data":{"kind":"Rd"}}`,
			player: "alice",
			want:   match.DeclareKong{PlayerID: "alice", Kind: tile.MustParseKinds("Rd")[0]},
		},
		{
			name:   "pass",
			raw:    `{"type":"pass","matchId":"m"}`,
			player: "alice",
			want:   match.Pass{PlayerID: "alice"},
		},
		{
			name:   "declare win",
			raw:    `{"type":"declare_win","matchId":"m"}`,
			player: "alice",
			want:   match.DeclareWin{PlayerID: "alice"},
		},
		{
			name:   "leave",
			raw:    `{"type":"leave","matchId":"m"}`,
			player: "alice",
			want:   match.Leave{PlayerID: "alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand(frame(t, tt.raw), tt.player)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	tests := []struct {
		raw  string
		code string
	}{
		{`{"type":"draw"}`, CodeBadRequest},
		{`{"type":"discard","matchId":"m"}`, CodeBadRequest},
		{`{"type":"discard","matchId":"m","data":{"tile":"x"}}`, CodeBadRequest},
		{`{"type":"claim","matchId":"m","data":{}}`, CodeBadRequest},
		{`{"type":"claim","matchId":"m","data":{"kind":"ron"}}`, CodeBadRequest},
		{`{"type":"declare_kong","matchId":"m","data":{"kind":"0m"}}`, CodeBadRequest},
		{`{"type":"shuffle","matchId":"m"}`, CodeBadRequest},
	}
	for _, tt := range tests {
		_, err := DecodeCommand(frame(t, tt.raw), "alice")
		require.Error(t, err, tt.raw)
		assert.Equal(t, tt.code, ErrorCode(err), tt.raw)
	}
}

func TestEncodeCommandMatchesDecode(t *testing.T) {
	commands := []match.Command{
		match.Join{Name: "Alice"},
		match.SetReady{Ready: true},
		match.Draw{},
		match.Discard{Tile: 135},
		match.Claim{Kind: hand.Chi, Tiles: []tile.ID{12, 16}},
		match.Pass{},
		match.DeclareKong{Kind: tile.MustParseKinds("9s")[0]},
		match.DeclareWin{},
		match.Leave{},
	}
	for _, cmd := range commands {
		msg, err := EncodeCommand("m", cmd)
		require.NoError(t, err)
		assert.True(t, IsCommand(msg.Type), msg.Type)

		b, err := Marshal(msg)
		require.NoError(t, err)
		got, err := DecodeCommand(frame(t, string(b)), "")
		require.NoError(t, err)
		assert.Equal(t, cmd, got)
	}
	assert.False(t, IsCommand(TypeCreateMatch))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{match.ErrMatchFull, CodeMatchFull},
		{fmt.Errorf("seat: %w", match.ErrInvalidPhase), CodeInvalidPhase},
		{fmt.Errorf("%w: east", match.ErrNotYourTurn), CodeNotYourTurn},
		{match.ErrTileNotHeld, CodeTileNotHeld},
		{match.ErrIllegalClaim, CodeIllegalClaim},
		{match.ErrUnknownPlayer, CodeUnknownPlayer},
		{fmt.Errorf("%w: m_1", supervisor.ErrMatchNotFound), CodeMatchNotFound},
		{ErrBadRequest, CodeBadRequest},
		{fmt.Errorf("boom"), CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, ErrorCode(tt.err), tt.err.Error())
	}
}

func TestNewError(t *testing.T) {
	req := frame(t, `{"type":"draw","matchId":"m","requestId":"7"}`)
	msg := NewError(req, fmt.Errorf("draw: %w", match.ErrNotYourTurn))
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "m", msg.MatchID)
	assert.Equal(t, "7", msg.RequestID)

	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, CodeNotYourTurn, data.Code)
	assert.Equal(t, "draw: not your turn", data.Message)

	err := data.Err()
	assert.ErrorIs(t, err, match.ErrNotYourTurn)
	assert.EqualError(t, err, "draw: not your turn")
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeNotYourTurn, re.Code)

	err = ErrorData{Code: "teapot"}.Err()
	assert.EqualError(t, err, "teapot")
	assert.Nil(t, errors.Unwrap(err))

	var decoded ErrorData
	require.NoError(t, msg.Decode(&decoded))
	assert.Equal(t, data, decoded)
}

func TestForPlayerRedactsPrivateEvents(t *testing.T) {
	tiles := tile.MustParse("123m")
	dealt := match.HandDealt{PlayerID: "alice", Seat: seat.East, Tiles: tiles}

	ev, ok := ForPlayer(dealt, "alice")
	require.True(t, ok)
	assert.Equal(t, dealt, ev)

	_, ok = ForPlayer(dealt, "bob")
	assert.False(t, ok, "a dealt hand is never shown to another player")

	drawn := match.TileDrawn{PlayerID: "alice", Seat: seat.East, Tile: &tiles[0], WallRemaining: 80}
	ev, ok = ForPlayer(drawn, "bob")
	require.True(t, ok)
	redacted := ev.(match.TileDrawn)
	assert.Nil(t, redacted.Tile)
	assert.Equal(t, 80, redacted.WallRemaining)
	assert.NotNil(t, drawn.Tile, "redaction works on a copy")

	discarded := match.TileDiscarded{PlayerID: "alice", Tile: tiles[1]}
	ev, ok = ForPlayer(discarded, "bob")
	require.True(t, ok)
	assert.Equal(t, discarded, ev)
}

func TestEventMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tl := tile.MustParse("2p")[0]
	env := supervisor.Envelope{
		MatchID: "m_1",
		Seq:     9,
		At:      at,
		Event:   match.TileDrawn{PlayerID: "alice", Seat: seat.South, Tile: &tl, WallRemaining: 70},
	}

	own, ok, err := EventMessage(env, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MessageType(match.EventTileDrawn), own.Type)
	assert.Equal(t, uint64(9), own.Seq)
	assert.Equal(t, at, own.At)
	assert.JSONEq(t, fmt.Sprintf(`{"playerId":"alice","seat":"south","tile":{"id":%d,"kind":"2p"},"wallRemaining":70}`, tl.ID()), string(own.Data))

	other, ok, err := EventMessage(env, "bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"playerId":"alice","seat":"south","wallRemaining":70}`, string(other.Data))

	env.Event = match.HandDealt{PlayerID: "alice"}
	_, ok, err = EventMessage(env, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}
