package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/mahjongforbots/internal/bot"
)

// Config represents the complete client configuration
type Config struct {
	Server *ServerConnection `hcl:"server,block"`
	Player *PlayerSettings   `hcl:"player,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL            string `hcl:"url,optional"`
	ConnectTimeout string `hcl:"connect_timeout,optional"`
	RequestTimeout string `hcl:"request_timeout,optional"`
}

// PlayerSettings contains player-specific settings
type PlayerSettings struct {
	Name     string `hcl:"name,optional"`
	ID       string `hcl:"id,optional"`
	Strategy string `hcl:"strategy,optional"`
}

// DefaultConfig returns default client configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerConnection{}
	}
	if c.Player == nil {
		c.Player = &PlayerSettings{}
	}
	if c.Server.URL == "" {
		c.Server.URL = "ws://localhost:8080/ws"
	}
	if c.Server.ConnectTimeout == "" {
		c.Server.ConnectTimeout = "10s"
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "30s"
	}
	if c.Player.Strategy == "" {
		c.Player.Strategy = "greedy"
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
	if _, err := time.ParseDuration(c.Server.ConnectTimeout); err != nil {
		return fmt.Errorf("server: connect_timeout: %w", err)
	}
	if d, err := time.ParseDuration(c.Server.RequestTimeout); err != nil || d <= 0 {
		return fmt.Errorf("server: request_timeout must be a positive duration")
	}
	if !slices.Contains(bot.Strategies, c.Player.Strategy) {
		return fmt.Errorf("player: unknown strategy %q", c.Player.Strategy)
	}
	return nil
}

// Timeouts returns the parsed connect and request timeouts. The
// configuration must have been validated.
func (c *Config) Timeouts() (connect, request time.Duration) {
	connect, _ = time.ParseDuration(c.Server.ConnectTimeout)
	request, _ = time.ParseDuration(c.Server.RequestTimeout)
	return connect, request
}
