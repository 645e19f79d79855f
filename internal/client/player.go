package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/lox/mahjongforbots/internal/bot"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/protocol"
	"github.com/lox/mahjongforbots/internal/seat"
)

// Player plays one seat over a connection, asking a bot strategy for each
// move.
type Player struct {
	client   *Client
	matchID  string
	name     string
	strategy bot.Strategy
	logger   *log.Logger

	id   match.PlayerID
	seat seat.Seat
}

func NewPlayer(c *Client, matchID, name string, strategy bot.Strategy, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Player{
		client:   c,
		matchID:  matchID,
		name:     name,
		strategy: strategy,
		logger:   logger.WithPrefix("player").With("match", matchID, "name", name),
	}
}

func (p *Player) ID() match.PlayerID { return p.id }
func (p *Player) Seat() seat.Seat    { return p.seat }

// Join takes a seat. A non-empty id rejoins a seat held earlier.
func (p *Player) Join(ctx context.Context, id match.PlayerID) error {
	ack, err := p.client.Join(ctx, p.matchID, id, p.name)
	if err != nil {
		return err
	}
	p.id = ack.PlayerID
	if ack.Seat != nil {
		p.seat = *ack.Seat
	}
	p.logger.Info("Joined match", "player", p.id, "seat", p.seat, "strategy", p.strategy.Name())
	return nil
}

// Play readies the player and plays until the match ends.
func (p *Player) Play(ctx context.Context) (match.MatchEnded, error) {
	if p.id == "" {
		return match.MatchEnded{}, fmt.Errorf("player %s has not joined", p.name)
	}
	if err := p.client.Do(ctx, p.matchID, match.SetReady{PlayerID: p.id, Ready: true}); err != nil {
		return match.MatchEnded{}, err
	}

	for {
		msg, err := p.client.Next(ctx)
		if err != nil {
			return match.MatchEnded{}, err
		}
		if msg.MatchID != p.matchID {
			continue
		}
		switch msg.Type {
		case protocol.MessageType(match.EventMatchEnded):
			var ended match.MatchEnded
			if err := msg.Decode(&ended); err != nil {
				return match.MatchEnded{}, err
			}
			p.logger.Info("Match ended", "reason", ended.Outcome.Reason, "winner", ended.Outcome.Winner)
			return ended, nil
		case protocol.TypeError:
			var e protocol.ErrorData
			_ = msg.Decode(&e)
			p.logger.Warn("Server error", "code", e.Code, "message", e.Message)
			continue
		}
		if err := p.act(ctx); err != nil {
			return match.MatchEnded{}, err
		}
	}
}

func (p *Player) act(ctx context.Context) error {
	v, err := p.client.View(ctx, p.matchID)
	if err != nil {
		return err
	}
	cmd := p.strategy.Decide(v)
	if cmd == nil {
		return nil
	}
	err = p.client.Do(ctx, p.matchID, cmd)
	switch {
	case err == nil:
		p.logger.Debug("Played", "command", cmd.Name(), "phase", v.Phase)
		return nil
	case errors.Is(err, match.ErrInvalidPhase), errors.Is(err, match.ErrNotYourTurn), errors.Is(err, match.ErrMatchClosed):
		p.logger.Debug("Move overtaken", "command", cmd.Name(), "error", err)
		return nil
	}
	return fmt.Errorf("%s chose %s: %w", p.strategy.Name(), cmd.Name(), err)
}
