package bot

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/supervisor"
	"golang.org/x/sync/errgroup"
)

// Seated is one bot's part in a finished match.
type Seated struct {
	PlayerID match.PlayerID
	Seat     seat.Seat
	Strategy string
	Delta    int
}

// Result is a finished bot match.
type Result struct {
	MatchID string
	Seed    int64
	Outcome match.Outcome
	Seats   [seat.Count]Seated
}

// Play creates a match on sup, seats strategies[i] at seat i and plays it
// to the end.
func Play(ctx context.Context, sup *supervisor.Supervisor, strategies [seat.Count]Strategy, logger *log.Logger, opts ...match.Option) (Result, error) {
	id, err := sup.CreateMatch(opts...)
	if err != nil {
		return Result{}, err
	}

	var bots [seat.Count]*Bot
	abandon := func() {
		for _, b := range bots {
			if b != nil {
				b.sub.Close()
			}
		}
		_ = sup.Cancel(id)
	}
	for i, s := range strategies {
		b := New(sup, id, fmt.Sprintf("%s-%d", s.Name(), i), s, logger)
		if err := b.Join(ctx); err != nil {
			abandon()
			return Result{}, err
		}
		bots[i] = b
	}

	res := Result{MatchID: id}
	if m, err := sup.Match(id); err == nil {
		if snap, err := m.Snapshot(ctx); err == nil {
			res.Seed = snap.Seed
		}
	}

	var ends [seat.Count]match.MatchEnded
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bots {
		g.Go(func() error {
			ended, err := b.Play(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", b.name, err)
			}
			ends[i] = ended
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		abandon()
		return Result{}, err
	}

	ended := ends[0]
	res.Outcome = ended.Outcome
	for i, b := range bots {
		res.Seats[i] = Seated{PlayerID: b.id, Seat: b.seat, Strategy: b.strategy.Name()}
		for _, sc := range ended.Scores {
			if sc.PlayerID == b.id {
				res.Seats[i].Delta = sc.Delta
			}
		}
	}
	return res, nil
}
