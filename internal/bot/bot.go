// Package bot plays matches automatically. A Bot sits in one match on a
// supervisor and asks its Strategy for a move whenever the match changes.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/supervisor"
)

// ErrDropped is returned when the supervisor stops delivering events to a
// bot before its match ends.
var ErrDropped = errors.New("event stream dropped")

// Bot plays one seat of one match.
type Bot struct {
	sup      *supervisor.Supervisor
	matchID  string
	name     string
	strategy Strategy
	logger   *log.Logger

	id   match.PlayerID
	seat seat.Seat
	sub  *supervisor.Subscription
}

// New creates a bot for matchID. It does nothing until Join.
func New(sup *supervisor.Supervisor, matchID, name string, strategy Strategy, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bot{
		sup:      sup,
		matchID:  matchID,
		name:     name,
		strategy: strategy,
		logger:   logger.WithPrefix("bot").With("match", matchID, "name", name),
	}
}

func (b *Bot) ID() match.PlayerID { return b.id }
func (b *Bot) Seat() seat.Seat    { return b.seat }
func (b *Bot) Strategy() Strategy { return b.strategy }

// Join subscribes to the match and takes a seat.
func (b *Bot) Join(ctx context.Context) error {
	sub, err := b.sup.Subscribe(b.matchID)
	if err != nil {
		return err
	}
	res, err := b.sup.Dispatch(ctx, b.matchID, match.Join{Name: b.name})
	if err != nil {
		sub.Close()
		return fmt.Errorf("join %s: %w", b.matchID, err)
	}
	b.sub, b.id, b.seat = sub, res.PlayerID, res.Seat
	b.logger.Debug("joined", "player", b.id, "seat", b.seat, "strategy", b.strategy.Name())
	return nil
}

// Play readies the bot and plays until the match ends, returning the final
// event. Join must have succeeded.
func (b *Bot) Play(ctx context.Context) (match.MatchEnded, error) {
	if b.sub == nil {
		return match.MatchEnded{}, fmt.Errorf("bot %s has not joined", b.name)
	}
	defer b.sub.Close()

	if _, err := b.sup.Dispatch(ctx, b.matchID, match.SetReady{PlayerID: b.id, Ready: true}); err != nil {
		return match.MatchEnded{}, fmt.Errorf("ready: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return match.MatchEnded{}, ctx.Err()
		case env, ok := <-b.sub.Events():
			if !ok {
				return match.MatchEnded{}, ErrDropped
			}
			if ended, ok := env.Event.(match.MatchEnded); ok {
				b.logger.Debug("match ended", "reason", ended.Outcome.Reason)
				return ended, nil
			}
			if err := b.act(ctx); err != nil {
				return match.MatchEnded{}, err
			}
		}
	}
}

// act makes at most one move. Losing a race against a timer or another
// player shows up as a phase or turn error and is not a failure.
func (b *Bot) act(ctx context.Context) error {
	v, err := b.sup.View(ctx, b.matchID, b.id)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	cmd := b.strategy.Decide(v)
	if cmd == nil {
		return nil
	}

	_, err = b.sup.Dispatch(ctx, b.matchID, cmd)
	switch {
	case err == nil:
		b.logger.Debug("played", "command", cmd.Name(), "phase", v.Phase)
		return nil
	case errors.Is(err, match.ErrInvalidPhase), errors.Is(err, match.ErrNotYourTurn), errors.Is(err, match.ErrMatchClosed):
		b.logger.Debug("move overtaken", "command", cmd.Name(), "error", err)
		return nil
	}
	return fmt.Errorf("%s chose %s: %w", b.strategy.Name(), cmd.Name(), err)
}
