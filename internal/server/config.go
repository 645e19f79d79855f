package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/seat"
)

// Config is the complete server configuration
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Match  *MatchSettings  `hcl:"match,block"`
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address          string `hcl:"address,optional"`
	Port             int    `hcl:"port,optional"`
	LogLevel         string `hcl:"log_level,optional"`
	SubscriberBuffer int    `hcl:"subscriber_buffer,optional"`
}

// MatchSettings applies to every match the server creates. Durations use
// time.ParseDuration syntax; a zero turn timeout disables it.
type MatchSettings struct {
	ClaimWindow string `hcl:"claim_window,optional"`
	TurnTimeout string `hcl:"turn_timeout,optional"`
	Seed        int64  `hcl:"seed,optional"`
	Dealer      string `hcl:"dealer,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Match == nil {
		c.Match = &MatchSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Match.ClaimWindow == "" {
		c.Match.ClaimWindow = match.DefaultClaimWindow.String()
	}
	if c.Match.TurnTimeout == "" {
		c.Match.TurnTimeout = "0s"
	}
	if c.Match.Dealer == "" {
		c.Match.Dealer = seat.East.String()
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	if c.Server.SubscriberBuffer < 0 {
		return fmt.Errorf("subscriber buffer must not be negative")
	}

	window, err := time.ParseDuration(c.Match.ClaimWindow)
	if err != nil {
		return fmt.Errorf("match: claim_window: %w", err)
	}
	if window <= 0 {
		return fmt.Errorf("match: claim_window must be positive")
	}
	timeout, err := time.ParseDuration(c.Match.TurnTimeout)
	if err != nil {
		return fmt.Errorf("match: turn_timeout: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("match: turn_timeout must not be negative")
	}
	if _, err := seat.Parse(c.Match.Dealer); err != nil {
		return fmt.Errorf("match: dealer: %w", err)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// MatchOptions converts the match block into options for new matches.
// The configuration must have been validated.
func (c *Config) MatchOptions() []match.Option {
	window, _ := time.ParseDuration(c.Match.ClaimWindow)
	timeout, _ := time.ParseDuration(c.Match.TurnTimeout)
	dealer, _ := seat.Parse(c.Match.Dealer)

	opts := []match.Option{
		match.WithClaimWindow(window),
		match.WithTurnTimeout(timeout),
		match.WithDealer(dealer),
	}
	if c.Match.Seed != 0 {
		opts = append(opts, match.WithSeed(c.Match.Seed))
	}
	return opts
}
