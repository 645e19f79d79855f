package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lox/mahjongforbots/cmd/mahjongforbots/shared"
	"github.com/lox/mahjongforbots/internal/fileutil"
	"github.com/lox/mahjongforbots/internal/simulator"
)

// SimCmd plays bot matches against an in-process supervisor.
type SimCmd struct {
	Deals       int           `default:"100" help:"Walls to play; each is played once per seat rotation"`
	Strategies  []string      `default:"greedy,random" help:"Strategy per seat, repeated to fill the table (${strategies})"`
	Seed        int64         `default:"0" help:"First wall seed (0 for random)"`
	Timeout     time.Duration `default:"30s" help:"Per match timeout"`
	ClaimWindow time.Duration `default:"3s" help:"Claim window; bots answer at once so this only bounds a stall"`
	Concurrency int           `default:"0" help:"Matches in flight (0 for one per CPU)"`
	Out         string        `type:"path" help:"Also write the results as JSON to this file"`
	Quiet       bool          `short:"q" help:"Do not print progress"`
	LogLevel    string        `default:"warn" help:"Log level (debug|info|warn|error)"`
}

func (c *SimCmd) Run() error {
	logger, err := shared.SetupLogger(c.LogLevel)
	if err != nil {
		return err
	}
	sim, err := simulator.New(simulator.Config{
		Deals:       c.Deals,
		Strategies:  c.Strategies,
		Seed:        c.Seed,
		Timeout:     c.Timeout,
		ClaimWindow: c.ClaimWindow,
		Concurrency: c.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	var progress func(int)
	var monitor *ProgressMonitor
	if !c.Quiet {
		monitor = NewProgressMonitor(os.Stdout, sim.Matches())
		progress = monitor.OnMatchComplete
	}

	table, err := sim.Run(ctx, progress)
	if err != nil {
		return err
	}
	if monitor != nil {
		monitor.PrintSummary()
	}
	fmt.Println(simulator.Summary(table, sim.Seed()))

	if c.Out != "" {
		if err := fileutil.WriteJSONAtomic(c.Out, simulator.NewReport(table, sim.Seed()), 0o644); err != nil {
			return err
		}
		logger.Info("Wrote results", "path", c.Out)
	}
	return nil
}
