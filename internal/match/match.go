package match

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Match runs a Game on its own goroutine. Commands, queries and timer
// expiries are queued to that goroutine and applied one at a time, so
// nothing inside the game needs locking.
type Match struct {
	id     string
	game   *Game
	clock  quartz.Clock
	logger *log.Logger
	sink   func([]Event)

	requests chan request
	done     chan struct{}
	ended    atomic.Bool

	timer *quartz.Timer
	armed Timer
}

type request struct {
	fn    func(*Game)
	reply chan struct{}
}

// New returns a match in the Lobby phase. Nothing is processed until Run
// is called.
func New(id string, opts ...Option) *Match {
	cfg := newConfig(opts)
	return &Match{
		id:       id,
		game:     NewGame(id, opts...),
		clock:    cfg.clock,
		logger:   cfg.logger.With("match", id),
		sink:     cfg.sink,
		requests: make(chan request),
		done:     make(chan struct{}),
	}
}

func (m *Match) ID() string { return m.id }

// Ended reports whether the game reached the Ended phase. It is safe to call
// from any goroutine.
func (m *Match) Ended() bool { return m.ended.Load() }

// Done is closed once Run has returned.
func (m *Match) Done() <-chan struct{} { return m.done }

// Run processes the match until ctx is cancelled. Cancelling a match that
// has not ended ends it with ReasonCancelled. Run only returns nil; a
// failing match never takes its siblings down with it.
func (m *Match) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.stopTimer()

	m.logger.Debug("match loop started")
	for {
		select {
		case <-ctx.Done():
			if !m.game.Ended() {
				m.logger.Info("match cancelled", "cause", context.Cause(ctx))
				m.game.Abort(ReasonCancelled, context.Cause(ctx).Error())
				m.flush()
			}
			return nil
		case req := <-m.requests:
			req.fn(m.game)
			m.flush()
			m.rearm()
			close(req.reply)
		}
	}
}

// exec runs fn on the match goroutine and waits for it. The request channel
// is unbuffered, so an accepted request is always answered, and ctx only
// bounds the wait to be accepted. Once the loop has stopped the game no
// longer changes, so read-only calls run inline.
func (m *Match) exec(ctx context.Context, fn func(*Game), readOnly bool) error {
	req := request{fn: fn, reply: make(chan struct{})}
	select {
	case m.requests <- req:
	case <-m.done:
		if readOnly {
			fn(m.game)
			return nil
		}
		return ErrMatchClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-req.reply
	return nil
}

// Do applies cmd and returns once its events have been handed to the sink.
// A context error means cmd was never applied.
func (m *Match) Do(ctx context.Context, cmd Command) (Result, error) {
	var (
		res Result
		err error
	)
	if xerr := m.exec(ctx, func(g *Game) {
		res, err = g.Apply(cmd)
		if err != nil {
			m.logger.Debug("command rejected", "command", cmd.Name(), "err", err)
		} else {
			m.logger.Debug("command applied", "command", cmd.Name(), "phase", g.Phase())
		}
	}, false); xerr != nil {
		return Result{}, xerr
	}
	return res, err
}

// Snapshot returns a full copy of the game state.
func (m *Match) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := m.exec(ctx, func(g *Game) { s = g.Snapshot() }, true)
	return s, err
}

// View returns what player id may see.
func (m *Match) View(ctx context.Context, id PlayerID) (View, error) {
	var (
		v    View
		verr error
	)
	if err := m.exec(ctx, func(g *Game) { v, verr = g.View(id) }, true); err != nil {
		return View{}, err
	}
	return v, verr
}

func (m *Match) flush() {
	events := m.game.Drain()
	if m.game.Ended() {
		m.ended.Store(true)
	}
	if len(events) == 0 || m.sink == nil {
		return
	}
	m.sink(events)
}

// rearm keeps one clock timer in step with the game's pending deadline.
func (m *Match) rearm() {
	t, ok := m.game.Timer()
	if ok && m.timer != nil && t.Kind == m.armed.Kind && t.Step == m.armed.Step {
		return
	}
	m.stopTimer()
	if !ok {
		return
	}
	m.armed = t
	m.timer = m.clock.AfterFunc(t.At.Sub(m.clock.Now()), func() { m.expire(t) }, "match", "timer")
}

func (m *Match) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// expire runs on the clock's goroutine and blocks until the loop has
// applied the expiry.
func (m *Match) expire(t Timer) {
	req := request{
		fn: func(g *Game) {
			if !g.Expire(t) {
				m.logger.Debug("stale timer ignored", "step", t.Step)
			}
		},
		reply: make(chan struct{}),
	}
	select {
	case m.requests <- req:
		<-req.reply
	case <-m.done:
	}
}
