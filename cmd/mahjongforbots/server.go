package main

import (
	"fmt"

	"github.com/lox/mahjongforbots/cmd/mahjongforbots/shared"
	"github.com/lox/mahjongforbots/internal/server"
	"github.com/lox/mahjongforbots/internal/supervisor"
)

// ServerCmd runs the WebSocket server. Flags override the config file.
type ServerCmd struct {
	Config      string `kong:"default='mahjongd.hcl',help='HCL configuration file (optional)'"`
	Addr        string `kong:"help='Listen address, host:port'"`
	LogLevel    string `kong:"help='Log level (debug|info|warn|error)'"`
	LogJSON     bool   `kong:"help='Output JSON logs instead of console format'"`
	ClaimWindow string `kong:"help='How long seats have to claim a discard, e.g. 3s'"`
	TurnTimeout string `kong:"help='Auto-play a turn after this long, 0 to disable'"`
	Seed        *int64 `kong:"help='Deterministic wall seed for every match (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.ClaimWindow != "" {
		cfg.Match.ClaimWindow = c.ClaimWindow
	}
	if c.TurnTimeout != "" {
		cfg.Match.TurnTimeout = c.TurnTimeout
	}
	if c.Seed != nil {
		cfg.Match.Seed = *c.Seed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", c.Config, err)
	}
	addr := cfg.Addr()
	if c.Addr != "" {
		addr = c.Addr
	}

	setup := shared.SetupLogger
	if c.LogJSON {
		setup = shared.SetupStructuredLogger
	}
	logger, err := setup(cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	sup := supervisor.New(logger,
		supervisor.WithMatchOptions(cfg.MatchOptions()...),
		supervisor.WithBuffer(cfg.Server.SubscriberBuffer),
	)
	defer sup.Close()

	logger.Info("Starting mahjong server",
		"address", addr,
		"claim_window", cfg.Match.ClaimWindow,
		"turn_timeout", cfg.Match.TurnTimeout,
		"dealer", cfg.Match.Dealer,
		"seed", cfg.Match.Seed,
	)

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()
	return server.New(sup, logger).ListenAndServe(ctx, addr)
}
