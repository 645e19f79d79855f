package claim

import (
	"testing"

	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fiveP = tile.Instance(tile.MustParseKinds("5p")[0], 0)

func newArbiter(discarder seat.Seat) *Arbiter {
	return NewArbiter(discarder, fiveP, seat.All())
}

func TestResolveNoClaims(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Pass(seat.South))
	require.NoError(t, a.Pass(seat.West))
	require.False(t, a.Decided())
	require.NoError(t, a.Pass(seat.North))
	require.True(t, a.Decided())

	_, ok := a.Resolve()
	assert.False(t, ok)
}

func TestHuBeatsPeng(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Peng}))
	require.NoError(t, a.Submit(Claim{Seat: seat.North, Kind: hand.Hu}))

	c, ok := a.Resolve()
	require.True(t, ok)
	assert.Equal(t, hand.Hu, c.Kind)
	assert.Equal(t, seat.North, c.Seat)
}

func TestPengBeatsChi(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Chi}))
	require.NoError(t, a.Submit(Claim{Seat: seat.West, Kind: hand.Peng}))
	require.NoError(t, a.Pass(seat.North))

	c, ok := a.Resolve()
	require.True(t, ok)
	assert.Equal(t, hand.Peng, c.Kind)
	assert.Equal(t, seat.West, c.Seat)
}

func TestGangBeatsPeng(t *testing.T) {
	a := newArbiter(seat.West)
	require.NoError(t, a.Submit(Claim{Seat: seat.North, Kind: hand.Peng}))
	require.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Gang}))

	c, _ := a.Resolve()
	assert.Equal(t, hand.Gang, c.Kind)
}

func TestHuTieGoesToNearestSeat(t *testing.T) {
	tests := []struct {
		discarder seat.Seat
		claimants []seat.Seat
		want      seat.Seat
	}{
		{seat.East, []seat.Seat{seat.North, seat.West}, seat.West},
		{seat.East, []seat.Seat{seat.North, seat.South}, seat.South},
		{seat.North, []seat.Seat{seat.West, seat.East}, seat.East},
		{seat.South, []seat.Seat{seat.East, seat.North}, seat.North},
	}
	for _, tt := range tests {
		a := newArbiter(tt.discarder)
		for _, s := range tt.claimants {
			require.NoError(t, a.Submit(Claim{Seat: s, Kind: hand.Hu}))
		}
		c, ok := a.Resolve()
		require.True(t, ok)
		assert.Equal(t, tt.want, c.Seat, "discarder %s", tt.discarder)
	}
}

func TestHuDecidesEarlyOnlyWhenNearerSeatsAnswered(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Submit(Claim{Seat: seat.West, Kind: hand.Hu}))
	assert.False(t, a.Decided(), "south could still hu and win the tie")

	require.NoError(t, a.Pass(seat.South))
	assert.True(t, a.Decided(), "north cannot outrank west")
}

func TestHuFromNextSeatDecidesImmediately(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Hu}))
	assert.True(t, a.Decided())
}

func TestPengDoesNotDecideEarly(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Peng}))
	require.NoError(t, a.Pass(seat.West))
	assert.False(t, a.Decided(), "north could still hu")
}

func TestChiOnlyFromNextSeat(t *testing.T) {
	a := newArbiter(seat.East)
	assert.ErrorIs(t, a.Submit(Claim{Seat: seat.West, Kind: hand.Chi}), ErrChiNotNextSeat)
	assert.True(t, a.Pending(seat.West), "rejected claim must not count as a response")
	assert.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Chi}))
}

func TestOneResponsePerSeat(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Peng}))
	assert.ErrorIs(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Hu}), ErrAlreadyResponded)
	assert.ErrorIs(t, a.Pass(seat.South), ErrAlreadyResponded)
}

func TestDiscarderAndIneligibleSeats(t *testing.T) {
	a := NewArbiter(seat.East, fiveP, []seat.Seat{seat.South, seat.West})
	assert.ErrorIs(t, a.Pass(seat.East), ErrNotEligible)
	assert.ErrorIs(t, a.Submit(Claim{Seat: seat.North, Kind: hand.Peng}), ErrNotEligible)

	require.NoError(t, a.Pass(seat.South))
	require.NoError(t, a.Pass(seat.West))
	assert.True(t, a.Decided())
}

func TestWithdraw(t *testing.T) {
	a := newArbiter(seat.East)
	require.NoError(t, a.Submit(Claim{Seat: seat.South, Kind: hand.Peng}))
	a.Withdraw(seat.South) // already responded, claim stays
	a.Withdraw(seat.West)
	a.Withdraw(seat.North)
	require.True(t, a.Decided())

	c, ok := a.Resolve()
	require.True(t, ok)
	assert.Equal(t, seat.South, c.Seat)
}

func TestClosedWindowRejectsResponses(t *testing.T) {
	a := newArbiter(seat.East)
	a.Resolve()
	assert.ErrorIs(t, a.Pass(seat.South), ErrWindowClosed)
	assert.True(t, a.Decided())
}

func TestClaimsOrder(t *testing.T) {
	a := newArbiter(seat.South)
	require.NoError(t, a.Submit(Claim{Seat: seat.East, Kind: hand.Peng}))
	require.NoError(t, a.Submit(Claim{Seat: seat.West, Kind: hand.Chi}))
	claims := a.Claims()
	require.Len(t, claims, 2)
	assert.Equal(t, seat.West, claims[0].Seat)
	assert.Equal(t, seat.East, claims[1].Seat)
}
