package match

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/mahjongforbots/internal/claim"
	"github.com/lox/mahjongforbots/internal/hand"
	"github.com/lox/mahjongforbots/internal/randutil"
	"github.com/lox/mahjongforbots/internal/seat"
	"github.com/lox/mahjongforbots/internal/tile"
)

const (
	dealSize = 13

	// winPoints is what the winner collects: from the discarder alone, or
	// one point from each other seat on a self-drawn win.
	winPoints = 3
)

// Game is the rules state machine for one match. It is not safe for
// concurrent use; Match owns a Game and serialises every call.
//
// Every command is validated before anything is mutated, so a rejected
// command leaves the game exactly as it was.
type Game struct {
	id     string
	cfg    config
	logger *log.Logger
	rng    *rand.Rand
	seed   int64

	phase   Phase
	seats   [seat.Count]*player
	wall    *tile.Wall
	pile    []tile.Tile
	turn    seat.Seat
	dealer  seat.Seat
	round   int
	arbiter *claim.Arbiter

	// deadline belongs to the current step: the claim window while
	// AwaitingClaims, otherwise the turn timeout when enabled.
	deadline time.Time
	step     uint64
	outcome  *Outcome
	events   []Event
}

// NewGame returns a game in the Lobby phase with no players. It panics if
// WithWall was given anything but a complete standard set.
func NewGame(id string, opts ...Option) *Game {
	cfg := newConfig(opts)
	if cfg.wall != nil {
		if err := tile.IsStandardSet(cfg.wall); err != nil {
			panic(fmt.Sprintf("invalid wall: %v", err))
		}
		cfg.wall = slices.Clone(cfg.wall)
	}
	if !cfg.dealer.Valid() {
		panic("dealer seat out of range")
	}
	seed := randutil.Seed(cfg.seed)
	return &Game{
		id:     id,
		cfg:    cfg,
		logger: cfg.logger.With("match", id),
		rng:    randutil.New(seed),
		seed:   seed,
		phase:  Lobby,
		dealer: cfg.dealer,
		round:  cfg.round,
	}
}

func (g *Game) ID() string      { return g.id }
func (g *Game) Phase() Phase    { return g.phase }
func (g *Game) Step() uint64    { return g.step }
func (g *Game) Seed() int64     { return g.seed }
func (g *Game) Ended() bool     { return g.phase == Ended }
func (g *Game) Turn() seat.Seat { return g.turn }

// Outcome returns the terminal outcome once the game has ended.
func (g *Game) Outcome() (Outcome, bool) {
	if g.outcome == nil {
		return Outcome{}, false
	}
	return *g.outcome, true
}

// Drain returns the events emitted since the last call.
func (g *Game) Drain() []Event {
	events := g.events
	g.events = nil
	return events
}

func (g *Game) emit(e Event) {
	g.events = append(g.events, e)
}

// Apply validates and applies one command.
func (g *Game) Apply(cmd Command) (res Result, err error) {
	if g.phase == Ended {
		return Result{}, ErrMatchClosed
	}

	defer func() {
		if r := recover(); r != nil {
			detail := fmt.Sprintf("panic applying %s: %v", cmd.Name(), r)
			g.logger.Error("match aborted", "reason", ReasonInvariantViolation, "detail", detail)
			g.end(Outcome{Reason: ReasonInvariantViolation, Detail: detail})
			res, err = Result{}, fmt.Errorf("%w: %s", ErrMatchClosed, detail)
		}
	}()

	switch c := cmd.(type) {
	case Join:
		res, err = g.join(c)
	case SetReady:
		err = g.setReady(c)
	case Draw:
		err = g.draw(c)
	case Discard:
		err = g.discard(c)
	case Claim:
		err = g.claim(c)
	case Pass:
		err = g.pass(c)
	case DeclareKong:
		err = g.declareKong(c)
	case DeclareWin:
		err = g.declareWin(c)
	case Leave:
		err = g.leave(c)
	default:
		err = fmt.Errorf("%w: unknown command %T", ErrInvalidPhase, cmd)
	}
	if err != nil {
		return Result{}, err
	}

	g.settle()
	return res, nil
}

// Abort ends the game with reason unless it has already ended.
func (g *Game) Abort(reason EndReason, detail string) {
	if g.phase == Ended {
		return
	}
	g.end(Outcome{Reason: reason, Detail: detail})
}

// TimerKind identifies what a deadline is for.
type TimerKind uint8

const (
	TimerClaimWindow TimerKind = iota + 1
	TimerTurn
)

// Timer is the deadline the owner of a Game should wake it up for.
type Timer struct {
	Kind TimerKind
	Step uint64
	At   time.Time
}

// Timer returns the deadline currently pending, if any.
func (g *Game) Timer() (Timer, bool) {
	switch g.phase {
	case AwaitingClaims:
		return Timer{Kind: TimerClaimWindow, Step: g.step, At: g.deadline}, true
	case AwaitingDraw, AwaitingDiscard:
		if g.cfg.turnTimeout > 0 {
			return Timer{Kind: TimerTurn, Step: g.step, At: g.deadline}, true
		}
	}
	return Timer{}, false
}

// Expire fires t. Timers from an earlier step are stale and ignored; the
// return value reports whether t was applied.
func (g *Game) Expire(t Timer) bool {
	if g.phase == Ended || t.Step != g.step {
		return false
	}
	switch t.Kind {
	case TimerClaimWindow:
		if g.phase != AwaitingClaims {
			return false
		}
		g.closeWindow()
	case TimerTurn:
		if g.phase != AwaitingDraw && g.phase != AwaitingDiscard {
			return false
		}
		p := g.seats[g.turn]
		g.logger.Warn("turn timed out", "seat", p.seat, "player", p.id, "phase", g.phase)
		g.emit(TurnTimedOut{PlayerID: p.id, Seat: p.seat, Phase: g.phase})
		g.autoPlay(p)
	default:
		return false
	}
	g.settle()
	return true
}

func (g *Game) lookup(id PlayerID) (*player, error) {
	for _, p := range g.seats {
		if p != nil && p.id == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, id)
}

// holder returns the player for id if they hold the turn in phase.
func (g *Game) holder(id PlayerID, phase Phase) (*player, error) {
	p, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	if g.phase != phase {
		return nil, fmt.Errorf("%w: %s needs %s", ErrInvalidPhase, g.phase, phase)
	}
	if p.seat != g.turn {
		return nil, fmt.Errorf("%w: %s to play", ErrNotYourTurn, g.turn)
	}
	return p, nil
}

func (g *Game) join(c Join) (Result, error) {
	if c.PlayerID != "" {
		if p, err := g.lookup(c.PlayerID); err == nil {
			if !p.connected && g.phase != Lobby {
				p.connected = true
				g.emit(PlayerJoined{PlayerID: p.id, Name: p.name, Seat: p.seat, Reconnect: true})
			}
			return Result{PlayerID: p.id, Seat: p.seat}, nil
		}
	}

	free := slices.IndexFunc(g.seats[:], func(p *player) bool { return p == nil })
	if free < 0 {
		return Result{}, ErrMatchFull
	}
	if g.phase != Lobby {
		return Result{}, fmt.Errorf("%w: cannot join during %s", ErrInvalidPhase, g.phase)
	}

	id := c.PlayerID
	if id == "" {
		id = PlayerID(g.cfg.ids.New())
	}
	name := c.Name
	if name == "" {
		name = string(id)
	}
	p := &player{id: id, name: name, seat: seat.Seat(free), connected: true}
	g.seats[free] = p
	g.emit(PlayerJoined{PlayerID: id, Name: name, Seat: p.seat})
	return Result{PlayerID: id, Seat: p.seat}, nil
}

func (g *Game) setReady(c SetReady) error {
	p, err := g.lookup(c.PlayerID)
	if err != nil {
		return err
	}
	if g.phase != Lobby {
		return fmt.Errorf("%w: ready only in lobby", ErrInvalidPhase)
	}
	p.ready = c.Ready
	g.emit(PlayerReady{PlayerID: p.id, Seat: p.seat, Ready: p.ready})

	for _, p := range g.seats {
		if p == nil || !p.ready {
			return nil
		}
	}
	g.deal()
	return nil
}

// rotation returns every seat in play order starting at from.
func rotation(from seat.Seat) []seat.Seat {
	return append([]seat.Seat{from}, seat.Order(from)...)
}

func (g *Game) deal() {
	g.phase = Dealing
	tiles := g.cfg.wall
	if tiles == nil {
		tiles = tile.Shuffle(tile.BuildStandardSet(), g.rng)
	}
	g.wall = tile.NewWall(tiles)

	started := MatchStarted{Round: g.round, Dealer: g.dealer}
	for _, s := range rotation(seat.East) {
		p := g.seats[s]
		started.Players = append(started.Players, SeatInfo{Seat: s, PlayerID: p.id, Name: p.name})
	}
	g.emit(started)

	for _, s := range rotation(g.dealer) {
		g.seats[s].hand = g.wall.Deal(dealSize)
	}
	dealer := g.seats[g.dealer]
	if t, ok := g.wall.Draw(); ok {
		dealer.hand = append(dealer.hand, t)
		dealer.drawn = &t
	}
	for _, s := range rotation(g.dealer) {
		p := g.seats[s]
		g.emit(HandDealt{PlayerID: p.id, Seat: s, Tiles: slices.Clone(p.hand)})
	}

	g.logger.Info("match started", "dealer", g.dealer, "round", g.round, "seed", g.seed)
	g.setTurn(g.dealer, AwaitingDiscard)
}

// setTurn hands the turn to s in phase and starts a new step.
func (g *Game) setTurn(s seat.Seat, phase Phase) {
	g.turn = s
	g.phase = phase
	g.arbiter = nil
	g.step++
	g.deadline = time.Time{}
	if g.cfg.turnTimeout > 0 {
		g.deadline = g.cfg.clock.Now().Add(g.cfg.turnTimeout)
	}
}

func (g *Game) draw(c Draw) error {
	p, err := g.holder(c.PlayerID, AwaitingDraw)
	if err != nil {
		return err
	}
	g.drawFor(p, false)
	return nil
}

// drawFor moves the front tile of the wall into p's hand, or ends the game
// as a draw when the wall is empty.
func (g *Game) drawFor(p *player, replacement bool) {
	t, ok := g.wall.Draw()
	if !ok {
		g.end(Outcome{Reason: ReasonWallExhausted})
		return
	}
	p.hand = append(p.hand, t)
	p.drawn = &t
	g.emit(TileDrawn{
		PlayerID:      p.id,
		Seat:          p.seat,
		Tile:          &t,
		Replacement:   replacement,
		WallRemaining: g.wall.Remaining(),
	})
	g.setTurn(p.seat, AwaitingDiscard)
}

func (g *Game) discard(c Discard) error {
	p, err := g.holder(c.PlayerID, AwaitingDiscard)
	if err != nil {
		return err
	}
	i := p.index(c.Tile)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrTileNotHeld, c.Tile)
	}
	g.throw(p, p.hand[i])
	return nil
}

// throw discards t from p's hand and opens the claim window on it.
func (g *Game) throw(p *player, t tile.Tile) {
	p.remove(t)
	p.drawn = nil
	p.discards = append(p.discards, t)
	g.pile = append(g.pile, t)
	g.emit(TileDiscarded{PlayerID: p.id, Seat: p.seat, Tile: t})

	var eligible []seat.Seat
	for _, s := range seat.Order(p.seat) {
		if g.seats[s].connected {
			eligible = append(eligible, s)
		}
	}

	g.arbiter = claim.NewArbiter(p.seat, t, eligible)
	g.phase = AwaitingClaims
	g.step++
	g.deadline = g.cfg.clock.Now().Add(g.cfg.claimWindow)
	g.emit(ClaimWindowOpened{Discarder: p.seat, Tile: t, Deadline: g.deadline, Eligible: eligible})

	if g.arbiter.Decided() {
		g.closeWindow()
	}
}

func (g *Game) respondent(id PlayerID) (*player, error) {
	p, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	if g.phase != AwaitingClaims {
		return nil, fmt.Errorf("%w: no discard to claim during %s", ErrInvalidPhase, g.phase)
	}
	return p, nil
}

func (g *Game) claim(c Claim) error {
	p, err := g.respondent(c.PlayerID)
	if err != nil {
		return err
	}
	a := g.arbiter
	if !a.Pending(p.seat) {
		if p.seat == a.Discarder() {
			return fmt.Errorf("%w: cannot claim own discard", ErrIllegalClaim)
		}
		return fmt.Errorf("%w: %s has no response pending", ErrIllegalClaim, p.seat)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown claim kind", ErrIllegalClaim)
	}

	discarded := a.Tile()
	fromNext := p.seat == a.Discarder().Next()
	if !hand.CanClaim(p.hand, discarded, c.Kind, fromNext) {
		return fmt.Errorf("%w: %s on %s", ErrIllegalClaim, c.Kind, discarded.Kind())
	}
	support, err := hand.SupportFor(p.hand, discarded, c.Kind, c.Tiles)
	if errors.Is(err, hand.ErrNotHeld) {
		return fmt.Errorf("%w: %w", ErrTileNotHeld, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIllegalClaim, err)
	}
	if err := a.Submit(claim.Claim{Seat: p.seat, Kind: c.Kind, Support: support}); err != nil {
		return fmt.Errorf("%w: %w", ErrIllegalClaim, err)
	}

	if a.Decided() {
		g.closeWindow()
	}
	return nil
}

func (g *Game) pass(c Pass) error {
	p, err := g.respondent(c.PlayerID)
	if err != nil {
		return err
	}
	if err := g.arbiter.Pass(p.seat); err != nil {
		return fmt.Errorf("%w: %w", ErrNotYourTurn, err)
	}
	if g.arbiter.Decided() {
		g.closeWindow()
	}
	return nil
}

// closeWindow resolves the pending discard and moves the turn on.
func (g *Game) closeWindow() {
	a := g.arbiter
	won, ok := a.Resolve()
	discarder, discarded := a.Discarder(), a.Tile()
	resolved := ClaimResolved{Discarder: discarder, Tile: discarded}
	if !ok {
		g.emit(resolved)
		g.setTurn(discarder.Next(), AwaitingDraw)
		return
	}

	p := g.seats[won.Seat]
	// The pending discard is always the top of the pile.
	g.pile = g.pile[:len(g.pile)-1]
	resolved.Kind = won.Kind
	resolved.Seat = &won.Seat
	resolved.PlayerID = p.id

	if won.Kind == hand.Hu {
		p.hand = append(p.hand, discarded)
		g.emit(resolved)
		g.win(p, discarded, &discarder)
		return
	}

	p.remove(won.Support...)
	meld := hand.MeldFor(won.Kind, discarded, won.Support)
	p.melds = append(p.melds, meld)
	resolved.Meld = &meld
	g.emit(resolved)
	g.logger.Debug("claim resolved", "kind", won.Kind, "seat", won.Seat, "tile", discarded)

	p.drawn = nil
	g.setTurn(p.seat, AwaitingDiscard)
	if won.Kind == hand.Gang {
		g.drawFor(p, true)
	}
}

func (g *Game) declareKong(c DeclareKong) error {
	p, err := g.holder(c.PlayerID, AwaitingDiscard)
	if err != nil {
		return err
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: invalid kind", ErrIllegalClaim)
	}

	held := p.ofKind(c.Kind)
	promote := slices.IndexFunc(p.melds, func(m hand.Meld) bool {
		return m.Kind == hand.Triplet && m.Base() == c.Kind
	})

	var ev KongDeclared
	switch {
	case len(held) == tile.Copies:
		p.remove(held...)
		tile.Sort(held)
		meld := hand.Meld{Kind: hand.Quad, Tiles: held, Concealed: true}
		p.melds = append(p.melds, meld)
		ev = KongDeclared{PlayerID: p.id, Seat: p.seat, Meld: meld}
	case len(held) == 1 && promote >= 0:
		p.remove(held[0])
		m := p.melds[promote]
		tiles := append(slices.Clone(m.Tiles), held[0])
		tile.Sort(tiles)
		m = hand.Meld{Kind: hand.Quad, Tiles: tiles}
		p.melds[promote] = m
		ev = KongDeclared{PlayerID: p.id, Seat: p.seat, Meld: m, Promoted: true}
	default:
		return fmt.Errorf("%w: no quad of %s", ErrIllegalClaim, c.Kind)
	}

	g.emit(ev)
	g.drawFor(p, true)
	return nil
}

func (g *Game) declareWin(c DeclareWin) error {
	p, err := g.holder(c.PlayerID, AwaitingDiscard)
	if err != nil {
		return err
	}
	if p.drawn == nil {
		return fmt.Errorf("%w: nothing drawn this turn", ErrIllegalClaim)
	}
	if !hand.IsWinningHand(p.hand) {
		return fmt.Errorf("%w: hand does not win", ErrIllegalClaim)
	}
	last := p.autoDiscard()
	g.win(p, last, nil)
	return nil
}

func (g *Game) leave(c Leave) error {
	p, err := g.lookup(c.PlayerID)
	if err != nil {
		return err
	}
	if g.phase == Lobby {
		g.seats[p.seat] = nil
		g.emit(PlayerLeft{PlayerID: p.id, Seat: p.seat})
		return nil
	}
	if !p.connected {
		return nil
	}

	p.connected = false
	g.emit(PlayerLeft{PlayerID: p.id, Seat: p.seat, Disconnected: true})

	if !slices.ContainsFunc(g.seats[:], func(p *player) bool { return p.connected }) {
		g.end(Outcome{Reason: ReasonAbandoned, Detail: "every player left"})
		return nil
	}
	if g.phase == AwaitingClaims {
		g.arbiter.Withdraw(p.seat)
		if g.arbiter.Decided() {
			g.closeWindow()
		}
	}
	return nil
}

// autoPlay takes p's turn for them: draw if needed, then throw the tile
// they drew.
func (g *Game) autoPlay(p *player) {
	if g.phase == AwaitingDraw && g.turn == p.seat {
		g.drawFor(p, false)
	}
	if g.phase == AwaitingDiscard && g.turn == p.seat {
		g.throw(p, p.autoDiscard())
	}
}

// settle runs after every applied command or timer. Disconnected turn
// holders are played automatically, then the invariants are checked.
func (g *Game) settle() {
	for g.phase == AwaitingDraw || g.phase == AwaitingDiscard {
		p := g.seats[g.turn]
		if p.connected {
			break
		}
		g.autoPlay(p)
	}

	if err := g.verify(); err != nil {
		g.logger.Error("invariant violated", "err", err, "phase", g.phase, "step", g.step)
		if g.phase != Ended {
			g.end(Outcome{Reason: ReasonInvariantViolation, Detail: err.Error()})
		}
	}
}

// verify checks tile conservation and hand sizes once tiles are dealt.
func (g *Game) verify() error {
	if g.wall == nil {
		return nil
	}

	var seen [tile.SetSize]bool
	total := g.wall.Remaining()
	count := func(tiles []tile.Tile) error {
		for _, t := range tiles {
			if seen[t.ID()] {
				return fmt.Errorf("tile %s appears twice", t)
			}
			seen[t.ID()] = true
		}
		total += len(tiles)
		return nil
	}

	if err := count(g.pile); err != nil {
		return err
	}
	for _, p := range g.seats {
		if err := count(p.hand); err != nil {
			return err
		}
		for _, m := range p.melds {
			if err := count(m.Tiles); err != nil {
				return err
			}
		}
	}
	if total != tile.SetSize {
		return fmt.Errorf("tile count is %d, want %d", total, tile.SetSize)
	}

	if g.phase == Ended {
		return nil
	}
	for _, p := range g.seats {
		want := dealSize
		if g.phase == AwaitingDiscard && p.seat == g.turn {
			want++
		}
		if n := p.size(); n != want {
			return fmt.Errorf("%s holds %d tiles, want %d", p.seat, n, want)
		}
	}
	return nil
}

func (g *Game) win(p *player, winning tile.Tile, discarder *seat.Seat) {
	winner := p.seat
	o := Outcome{
		Reason:      ReasonWin,
		Winner:      p.id,
		WinnerSeat:  &winner,
		SelfDrawn:   discarder == nil,
		Discarder:   discarder,
		WinningTile: &winning,
	}
	if part, ok := hand.PartitionOf(p.hand); ok {
		o.Partition = &part
	}
	g.end(o)
}

// end moves the game to Ended, settles scores and emits match_ended.
func (g *Game) end(o Outcome) {
	deltas := g.scoreDeltas(o)

	g.phase = Ended
	g.arbiter = nil
	g.deadline = time.Time{}
	g.step++
	g.outcome = &o

	ended := MatchEnded{Outcome: o}
	for _, p := range g.seats {
		if p == nil {
			continue
		}
		p.score += deltas[p.seat]
		ended.Scores = append(ended.Scores, SeatScore{
			Seat:     p.seat,
			PlayerID: p.id,
			Delta:    deltas[p.seat],
			Score:    p.score,
		})
	}
	g.emit(ended)
	g.logger.Info("match ended", "reason", o.Reason, "winner", o.Winner, "self_drawn", o.SelfDrawn)
}

// scoreDeltas is a flat settlement. Draws and aborted games score nothing.
func (g *Game) scoreDeltas(o Outcome) [seat.Count]int {
	var d [seat.Count]int
	if o.WinnerSeat == nil {
		return d
	}
	w := *o.WinnerSeat
	if o.Discarder != nil {
		d[w] = winPoints
		d[*o.Discarder] = -winPoints
		return d
	}
	for _, s := range seat.Order(w) {
		d[s] = -1
		d[w]++
	}
	return d
}
