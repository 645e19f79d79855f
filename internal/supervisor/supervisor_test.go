package supervisor

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var players = []match.PlayerID{"east", "south", "west", "north"}

func newSupervisor(t *testing.T, opts ...Option) *Supervisor {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.DebugLevel})
	s := New(logger, append([]Option{WithMatchOptions(match.WithSeed(1))}, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func startMatch(t *testing.T, ctx context.Context, s *Supervisor, id string) {
	t.Helper()
	for _, p := range players {
		_, err := s.Dispatch(ctx, id, match.Join{PlayerID: p})
		require.NoError(t, err)
	}
	for _, p := range players {
		_, err := s.Dispatch(ctx, id, match.SetReady{PlayerID: p, Ready: true})
		require.NoError(t, err)
	}
}

func recv(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case env, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return env
	case <-time.After(time.Second):
		require.FailNow(t, "no event")
	}
	return Envelope{}
}

func TestDispatchUnknownMatch(t *testing.T) {
	s := newSupervisor(t)
	_, err := s.Dispatch(context.Background(), "m_missing", match.Join{})
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = s.Subscribe("m_missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = s.Match("m_missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = s.View(context.Background(), "m_missing", "east")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestFanOutInOrder(t *testing.T) {
	ctx := context.Background()
	s := newSupervisor(t)
	id, err := s.CreateMatch()
	require.NoError(t, err)

	a, err := s.Subscribe(id)
	require.NoError(t, err)
	b, err := s.Subscribe(id)
	require.NoError(t, err)

	startMatch(t, ctx, s, id)

	for _, sub := range []*Subscription{a, b} {
		first := recv(t, sub)
		assert.Equal(t, id, first.MatchID)
		assert.Equal(t, uint64(1), first.Seq)
		assert.Equal(t, match.EventPlayerJoined, first.Event.EventType())

		prev := first.Seq
		for range 7 {
			env := recv(t, sub)
			assert.Equal(t, prev+1, env.Seq)
			prev = env.Seq
		}
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	ctx := context.Background()
	s := newSupervisor(t, WithBuffer(1))
	id, err := s.CreateMatch()
	require.NoError(t, err)

	slow, err := s.Subscribe(id)
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, id, match.Join{PlayerID: "a"})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, id, match.Join{PlayerID: "b"})
	require.NoError(t, err, "a full subscriber never blocks the match")

	env, ok := <-slow.Events()
	require.True(t, ok)
	assert.Equal(t, uint64(1), env.Seq)
	_, ok = <-slow.Events()
	assert.False(t, ok, "dropped subscriber's channel is closed")

	list := s.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Subscribers)
	assert.Equal(t, 2, list[0].Players)
}

func TestEndedMatchReapedAfterLastSubscriber(t *testing.T) {
	ctx := context.Background()
	s := newSupervisor(t)
	id, err := s.CreateMatch()
	require.NoError(t, err)
	sub, err := s.Subscribe(id)
	require.NoError(t, err)

	startMatch(t, ctx, s, id)
	for _, p := range players {
		_, err := s.Dispatch(ctx, id, match.Leave{PlayerID: p})
		require.NoError(t, err)
	}

	m, err := s.Match(id)
	require.NoError(t, err, "still subscribed, so still listed")
	assert.True(t, m.Ended())

	sub.Close()
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("match loop not stopped after reaping")
	}
	_, err = s.Dispatch(ctx, id, match.Draw{PlayerID: "east"})
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestEndedMatchWithoutSubscribersReaped(t *testing.T) {
	ctx := context.Background()
	s := newSupervisor(t)
	id, err := s.CreateMatch()
	require.NoError(t, err)
	m, err := s.Match(id)
	require.NoError(t, err)

	startMatch(t, ctx, s, id)
	for _, p := range players {
		_, err := s.Dispatch(ctx, id, match.Leave{PlayerID: p})
		require.NoError(t, err)
	}

	<-m.Done()
	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, match.ReasonAbandoned, snap.Outcome.Reason)
	assert.Equal(t, 0, s.Len())
}

func TestCancelEndsAndReapsMatch(t *testing.T) {
	ctx := context.Background()
	s := newSupervisor(t)
	id, err := s.CreateMatch()
	require.NoError(t, err)
	m, err := s.Match(id)
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, id, match.Join{PlayerID: "east"})
	require.NoError(t, err)
	require.NoError(t, s.Cancel(id))

	<-m.Done()
	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, match.ReasonCancelled, snap.Outcome.Reason)
	assert.Equal(t, 0, s.Len(), "a stranded lobby is reaped")

	assert.ErrorIs(t, s.Cancel(id), ErrMatchNotFound)
}

func TestMatchesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newSupervisor(t)
	a, err := s.CreateMatch()
	require.NoError(t, err)
	b, err := s.CreateMatch()
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	startMatch(t, ctx, s, a)
	startMatch(t, ctx, s, b)
	for _, p := range players {
		_, err := s.Dispatch(ctx, a, match.Leave{PlayerID: p})
		require.NoError(t, err)
	}

	mb, err := s.Match(b)
	require.NoError(t, err)
	snap, err := mb.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, match.AwaitingDiscard, snap.Phase)
	assert.Equal(t, 136, snap.TileCount())

	v, err := s.View(ctx, b, "east")
	require.NoError(t, err)
	assert.True(t, v.MustDiscard())
}

func TestCloseCancelsRunningMatches(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	s := newSupervisor(t, WithClock(clock))
	id, err := s.CreateMatch()
	require.NoError(t, err)
	sub, err := s.Subscribe(id)
	require.NoError(t, err)
	startMatch(t, ctx, s, id)

	require.NoError(t, s.Close())

	var last Envelope
	for env := range sub.Events() {
		last = env
	}
	ended, ok := last.Event.(match.MatchEnded)
	require.True(t, ok, "last event is %T", last.Event)
	assert.Equal(t, match.ReasonCancelled, ended.Outcome.Reason)
	assert.Equal(t, clock.Now(), last.At)

	_, err = s.CreateMatch()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentMatches(t *testing.T) {
	ctx := context.Background()
	s := newSupervisor(t)

	var g errgroup.Group
	for i := range 16 {
		g.Go(func() error {
			id, err := s.CreateMatch()
			if err != nil {
				return err
			}
			for _, p := range players {
				if _, err := s.Dispatch(ctx, id, match.Join{PlayerID: p}); err != nil {
					return fmt.Errorf("match %d: %w", i, err)
				}
			}
			_, err = s.Dispatch(ctx, id, match.Join{})
			if err == nil {
				return fmt.Errorf("match %d accepted a fifth player", i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, s.List(ctx), 16)
}
