package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/mahjongforbots/cmd/mahjongforbots/shared"
	"github.com/lox/mahjongforbots/internal/bot"
	"github.com/lox/mahjongforbots/internal/client"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/seat"
	"golang.org/x/sync/errgroup"
)

// BotCmd connects built-in bots to a running server.
type BotCmd struct {
	Strategy string `arg:"" optional:"" help:"Bot strategy (${strategies})"`
	Config   string `default:"client.hcl" help:"HCL client configuration file (optional)"`
	Server   string `help:"WebSocket server URL"`
	Match    string `help:"Match to join; a new match is created when empty"`
	Name     string `help:"Player name"`
	ID       string `help:"Player id to rejoin with"`
	Count    int    `default:"1" help:"Number of bots to seat, each on its own connection"`
	LogLevel string `default:"info" help:"Log level (debug|info|warn|error)"`
	LogJSON  bool   `help:"Output JSON logs instead of console format"`
}

func (c *BotCmd) Run() error {
	cfg, err := client.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Strategy != "" {
		cfg.Player.Strategy = c.Strategy
	}
	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.Name != "" {
		cfg.Player.Name = c.Name
	}
	if c.ID != "" {
		cfg.Player.ID = c.ID
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", c.Config, err)
	}
	if c.Count < 1 || c.Count > seat.Count {
		return fmt.Errorf("count must be between 1 and %d", seat.Count)
	}
	if c.Count > 1 && cfg.Player.ID != "" {
		return fmt.Errorf("a player id can only be used with a single bot")
	}

	setup := shared.SetupLogger
	if c.LogJSON {
		setup = shared.SetupStructuredLogger
	}
	logger, err := setup(c.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	connectTimeout, requestTimeout := cfg.Timeouts()
	dial := func() (*client.Client, error) {
		dctx, dcancel := context.WithTimeout(ctx, connectTimeout)
		defer dcancel()
		return client.Dial(dctx, cfg.Server.URL, logger)
	}

	matchID := c.Match
	if matchID == "" {
		conn, err := dial()
		if err != nil {
			return err
		}
		rctx, rcancel := context.WithTimeout(ctx, requestTimeout)
		matchID, err = conn.CreateMatch(rctx)
		rcancel()
		_ = conn.Close()
		if err != nil {
			return err
		}
		logger.Info("Created match", "match", matchID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range c.Count {
		conn, err := dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		strategy, err := bot.NewStrategy(cfg.Player.Strategy, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(i))))
		if err != nil {
			return err
		}
		name := cfg.Player.Name
		if name == "" || c.Count > 1 {
			name = fmt.Sprintf("%s-%d", cfg.Player.Strategy, i+1)
		}
		p := client.NewPlayer(conn, matchID, name, strategy, logger)

		jctx, jcancel := context.WithTimeout(ctx, requestTimeout)
		err = p.Join(jctx, match.PlayerID(cfg.Player.ID))
		jcancel()
		if err != nil {
			return err
		}

		g.Go(func() error {
			ended, err := p.Play(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			logResult(logger, p, ended)
			return nil
		})
	}
	return g.Wait()
}

func logResult(logger *log.Logger, p *client.Player, ended match.MatchEnded) {
	for _, sc := range ended.Scores {
		if sc.PlayerID != p.ID() {
			continue
		}
		logger.Info("Result",
			"player", p.ID(),
			"seat", p.Seat(),
			"reason", ended.Outcome.Reason,
			"won", ended.Outcome.Winner == p.ID(),
			"delta", sc.Delta,
			"score", sc.Score,
		)
	}
}
