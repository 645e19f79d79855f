// Package simulator plays many bot matches concurrently and collects their
// results. Each wall is played once per seat rotation so every strategy
// meets the same tiles from every seat.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/mahjongforbots/internal/bot"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/statistics"
	"github.com/lox/mahjongforbots/internal/supervisor"
	"golang.org/x/sync/errgroup"
)

// ErrInvariant is returned when a simulated match ends on a broken
// invariant instead of a win or a draw.
var ErrInvariant = errors.New("match ended on invariant violation")

// Config holds configuration for running simulations
type Config struct {
	Deals       int           // Walls to play; each is played once per rotation
	Strategies  []string      // Strategy per seat, repeated to fill the table
	Seed        int64         // First wall seed; deal i uses Seed+i
	Timeout     time.Duration // Per match
	ClaimWindow time.Duration
	Concurrency int
	Logger      *log.Logger
}

func (c *Config) applyDefaults() {
	if c.Deals <= 0 {
		c.Deals = 1
	}
	if len(c.Strategies) == 0 {
		c.Strategies = []string{"greedy", "random"}
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ClaimWindow <= 0 {
		c.ClaimWindow = match.DefaultClaimWindow
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
}

// Simulator runs bot matches
type Simulator struct {
	config Config
	seats  [seat.Count]string
}

// New creates a simulator. It fails on an unknown strategy name.
func New(config Config) (*Simulator, error) {
	config.applyDefaults()
	if len(config.Strategies) > seat.Count {
		return nil, fmt.Errorf("%d strategies for %d seats", len(config.Strategies), seat.Count)
	}
	s := &Simulator{config: config}
	for i := range s.seats {
		name := config.Strategies[i%len(config.Strategies)]
		if _, err := bot.NewStrategy(name, nil); err != nil {
			return nil, err
		}
		s.seats[i] = name
	}
	return s, nil
}

// Seed returns the first wall seed, which is random unless configured.
func (s *Simulator) Seed() int64 { return s.config.Seed }

// Matches returns how many matches Run plays.
func (s *Simulator) Matches() int { return s.config.Deals * seat.Count }

// Run plays every match and returns the validated results. progress, when
// not nil, is called after each match with the number finished so far.
func (s *Simulator) Run(ctx context.Context, progress func(done int)) (*statistics.Table, error) {
	logger := s.config.Logger.WithPrefix("simulator")
	sup := supervisor.New(s.config.Logger, supervisor.WithMatchOptions(match.WithClaimWindow(s.config.ClaimWindow)))
	defer sup.Close()

	logger.Info("Starting simulation", "deals", s.config.Deals, "seats", s.seats, "seed", s.config.Seed, "concurrency", s.config.Concurrency)
	started := time.Now()

	table := statistics.NewTable()
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for deal := range s.config.Deals {
		seed := s.config.Seed + int64(deal)
		for rotation := range seat.Count {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results, err := s.playMatch(gctx, sup, seed, rotation)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if err := table.AddMatch(results); err != nil {
					return err
				}
				done++
				if progress != nil {
					progress(done)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	logger.Info("Simulation complete", "matches", table.Matches, "draws", table.Draws, "elapsed", time.Since(started))
	return table, nil
}

// playMatch plays one wall with the strategies shifted rotation seats.
func (s *Simulator) playMatch(ctx context.Context, sup *supervisor.Supervisor, seed int64, rotation int) ([]statistics.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var strategies [seat.Count]bot.Strategy
	for i := range strategies {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(rotation*seat.Count+i)))
		st, err := bot.NewStrategy(s.seats[(i+rotation)%seat.Count], rng)
		if err != nil {
			return nil, err
		}
		strategies[i] = st
	}

	res, err := bot.Play(ctx, sup, strategies, s.config.Logger, match.WithSeed(seed))
	if err != nil {
		return nil, fmt.Errorf("match seed %d rotation %d: %w", seed, rotation, err)
	}
	if res.Outcome.Reason == match.ReasonInvariantViolation {
		return nil, fmt.Errorf("match %s seed %d: %w: %s", res.MatchID, seed, ErrInvariant, res.Outcome.Detail)
	}
	return Results(res), nil
}

// Results flattens a finished bot match into one result per seat.
func Results(res bot.Result) []statistics.MatchResult {
	o := res.Outcome
	out := make([]statistics.MatchResult, 0, seat.Count)
	for _, st := range res.Seats {
		won := !o.Draw() && o.Winner == st.PlayerID
		out = append(out, statistics.MatchResult{
			Strategy:  st.Strategy,
			Seat:      st.Seat,
			Delta:     st.Delta,
			Seed:      res.Seed,
			Won:       won,
			SelfDrawn: won && o.SelfDrawn,
			DealtIn:   !won && o.Discarder != nil && *o.Discarder == st.Seat,
			Draw:      o.Draw(),
			Reason:    string(o.Reason),
		})
	}
	return out
}
