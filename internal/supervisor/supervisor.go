// Package supervisor runs many matches side by side. It is a directory of
// match actors plus the fan-out of their events to subscribers; it has no
// game logic of its own.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/mahjongforbots/internal/ident"
	"github.com/lox/mahjongforbots/internal/match"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrClosed        = errors.New("supervisor is closed")
)

// DefaultBuffer is the per-subscriber event buffer.
const DefaultBuffer = 256

// Envelope carries one event of one match. Seq starts at 1 and increases by
// one per event, so a subscriber can tell when it has missed some.
type Envelope struct {
	MatchID string      `json:"matchId"`
	Seq     uint64      `json:"seq"`
	At      time.Time   `json:"at"`
	Event   match.Event `json:"-"`
}

// Summary describes a running match.
type Summary struct {
	ID          string      `json:"id"`
	Phase       match.Phase `json:"phase"`
	Players     int         `json:"players"`
	Subscribers int         `json:"subscribers"`
	Created     time.Time   `json:"created"`
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock sets the clock handed to every match and used for envelopes.
func WithClock(clock quartz.Clock) Option {
	return func(s *Supervisor) { s.clock = clock }
}

// WithMatchOptions applies opts to every match before the options passed to
// CreateMatch.
func WithMatchOptions(opts ...match.Option) Option {
	return func(s *Supervisor) { s.defaults = append(s.defaults, opts...) }
}

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithIDs sets the generator for match ids.
func WithIDs(g *ident.Generator) Option {
	return func(s *Supervisor) { s.ids = g }
}

// Supervisor owns a set of matches, each running on its own goroutine.
type Supervisor struct {
	logger   *log.Logger
	clock    quartz.Clock
	ids      *ident.Generator
	defaults []match.Option
	buffer   int

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu      sync.RWMutex
	matches map[string]*entry
	closed  bool
}

type entry struct {
	id      string
	match   *match.Match
	cancel  context.CancelFunc
	created time.Time

	mu   sync.Mutex
	seq  uint64
	subs []*Subscription
}

// New returns an empty supervisor.
func New(logger *log.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		logger:  logger.WithPrefix("supervisor"),
		buffer:  DefaultBuffer,
		ctx:     ctx,
		cancel:  cancel,
		matches: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.ids == nil {
		s.ids = ident.NewGenerator(s.clock, nil).WithPrefix("m_")
	}
	return s
}

// CreateMatch starts a new match in the Lobby phase and returns its id.
func (s *Supervisor) CreateMatch(opts ...match.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	id := s.ids.New()
	e := &entry{id: id, created: s.clock.Now()}

	all := []match.Option{
		match.WithClock(s.clock),
		match.WithLogger(s.logger),
	}
	all = append(all, s.defaults...)
	all = append(all, opts...)
	all = append(all, match.WithSink(func(events []match.Event) { s.publish(e, events) }))
	e.match = match.New(id, all...)

	ctx, cancel := context.WithCancel(s.ctx)
	e.cancel = cancel
	s.matches[id] = e
	s.group.Go(func() error { return e.match.Run(ctx) })

	s.logger.Info("match created", "match", id, "matches", len(s.matches))
	return id, nil
}

func (s *Supervisor) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return e, nil
}

// Match returns the match with the given id.
func (s *Supervisor) Match(id string) (*match.Match, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.match, nil
}

// Dispatch routes cmd to a match and returns its synchronous result.
func (s *Supervisor) Dispatch(ctx context.Context, id string, cmd match.Command) (match.Result, error) {
	e, err := s.lookup(id)
	if err != nil {
		return match.Result{}, err
	}
	return e.match.Do(ctx, cmd)
}

// Cancel ends a running match with match.ReasonCancelled. Like any ended
// match it is reaped once it has no subscribers.
func (s *Supervisor) Cancel(id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.cancel()
	return nil
}

// View returns what player may see of a match.
func (s *Supervisor) View(ctx context.Context, id string, player match.PlayerID) (match.View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return match.View{}, err
	}
	return e.match.View(ctx, player)
}

// List summarises every match in the directory.
func (s *Supervisor) List(ctx context.Context) []Summary {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.matches))
	for _, e := range s.matches {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		snap, err := e.match.Snapshot(ctx)
		if err != nil {
			continue
		}
		e.mu.Lock()
		subs := len(e.subs)
		e.mu.Unlock()
		out = append(out, Summary{
			ID:          e.id,
			Phase:       snap.Phase,
			Players:     len(snap.Players),
			Subscribers: subs,
			Created:     e.created,
		})
	}
	slices.SortFunc(out, func(a, b Summary) int { return a.Created.Compare(b.Created) })
	return out
}

// Len returns the number of matches in the directory.
func (s *Supervisor) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// Close ends every match and waits for their goroutines. Subscriber
// channels are closed once the final events have been delivered.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entries := make([]*entry, 0, len(s.matches))
	for _, e := range s.matches {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	s.cancel()
	err := s.group.Wait()

	for _, e := range entries {
		e.mu.Lock()
		for _, sub := range e.subs {
			sub.closeChannel()
		}
		e.subs = nil
		e.mu.Unlock()
	}

	s.mu.Lock()
	clear(s.matches)
	s.mu.Unlock()
	s.logger.Info("supervisor closed", "matches", len(entries))
	return err
}

// publish runs on the match goroutine. It never blocks: a subscriber whose
// buffer is full is dropped.
func (s *Supervisor) publish(e *entry, events []match.Event) {
	now := s.clock.Now()

	e.mu.Lock()
	for _, ev := range events {
		e.seq++
		env := Envelope{MatchID: e.id, Seq: e.seq, At: now, Event: ev}
		e.subs = slices.DeleteFunc(e.subs, func(sub *Subscription) bool {
			select {
			case sub.ch <- env:
				return false
			default:
				s.logger.Warn("dropping slow subscriber", "match", e.id, "seq", e.seq)
				sub.closeChannel()
				return true
			}
		})
	}
	idle := len(e.subs) == 0
	e.mu.Unlock()

	if idle && e.match.Ended() {
		s.reap(e.id)
	}
}

// reap removes a match that has ended and has no subscribers left.
func (s *Supervisor) reap(id string) {
	s.mu.Lock()
	e, ok := s.matches[id]
	if !ok || s.closed || !e.match.Ended() {
		s.mu.Unlock()
		return
	}
	e.mu.Lock()
	idle := len(e.subs) == 0
	e.mu.Unlock()
	if !idle {
		s.mu.Unlock()
		return
	}
	delete(s.matches, id)
	s.mu.Unlock()

	e.cancel()
	s.logger.Debug("match reaped", "match", id)
}

// Subscription receives the events of one match.
type Subscription struct {
	sup   *Supervisor
	entry *entry
	ch    chan Envelope
	once  sync.Once
}

// Subscribe registers for every event the match emits from now on. The
// channel is closed when the subscriber is dropped for falling behind, when
// it calls Close, or when the supervisor closes.
func (s *Supervisor) Subscribe(id string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}

	sub := &Subscription{sup: s, entry: e, ch: make(chan Envelope, s.buffer)}
	e.mu.Lock()
	e.subs = append(e.subs, sub)
	e.mu.Unlock()
	return sub, nil
}

// Events returns the delivery channel.
func (sub *Subscription) Events() <-chan Envelope { return sub.ch }

// MatchID returns the id of the subscribed match.
func (sub *Subscription) MatchID() string { return sub.entry.id }

// Close unsubscribes. A match that has ended is reaped once its last
// subscriber is gone.
func (sub *Subscription) Close() {
	e := sub.entry
	e.mu.Lock()
	e.subs = slices.DeleteFunc(e.subs, func(x *Subscription) bool { return x == sub })
	idle := len(e.subs) == 0
	e.mu.Unlock()
	sub.closeChannel()

	if idle && e.match.Ended() {
		sub.sup.reap(e.id)
	}
}

func (sub *Subscription) closeChannel() {
	sub.once.Do(func() { close(sub.ch) })
}
