package match

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/mahjongforbots/internal/ident"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

// DefaultClaimWindow is how long other seats have to claim a discard.
const DefaultClaimWindow = 3 * time.Second

// Option configures a Game or Match during creation.
type Option func(*config)

type config struct {
	clock       quartz.Clock
	logger      *log.Logger
	ids         *ident.Generator
	claimWindow time.Duration
	turnTimeout time.Duration
	seed        int64
	wall        []tile.Tile
	dealer      seat.Seat
	round       int
	sink        func([]Event)
}

func newConfig(opts []Option) config {
	cfg := config{
		claimWindow: DefaultClaimWindow,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = quartz.NewReal()
	}
	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard)
	}
	if cfg.ids == nil {
		cfg.ids = ident.NewGenerator(cfg.clock, nil).WithPrefix("p_")
	}
	return cfg
}

// WithClock sets the clock used for deadlines and timers.
func WithClock(clock quartz.Clock) Option {
	return func(c *config) { c.clock = clock }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithClaimWindow sets how long a discard stays open for claims.
func WithClaimWindow(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.claimWindow = d
		}
	}
}

// WithTurnTimeout auto-plays a turn holder that does not act within d.
// Zero disables the timeout.
func WithTurnTimeout(d time.Duration) Option {
	return func(c *config) { c.turnTimeout = d }
}

// WithSeed fixes the shuffle. Zero picks a random seed.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithWall replaces the shuffled wall with tiles, dealt from the front.
// The tiles must be a complete standard set.
func WithWall(tiles []tile.Tile) Option {
	return func(c *config) { c.wall = tiles }
}

// WithDealer sets the dealer seat. Defaults to East.
func WithDealer(s seat.Seat) Option {
	return func(c *config) { c.dealer = s }
}

// WithRound sets the round counter carried in match_started.
func WithRound(n int) Option {
	return func(c *config) { c.round = n }
}

// WithPlayerIDs sets the generator for ids of players that join without one.
func WithPlayerIDs(g *ident.Generator) Option {
	return func(c *config) { c.ids = g }
}

// WithSink receives every batch of events a Match produces, in order, from
// the match goroutine. The sink must not block or call back into the match.
func WithSink(sink func([]Event)) Option {
	return func(c *config) { c.sink = sink }
}
