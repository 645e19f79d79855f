package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/protocol"
	"github.com/lox/mahjongforbots/internal/supervisor"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Frames queued for a peer before it is considered stuck
	sendBuffer = 256

	// Time allowed for the leave commands sent when a peer goes away
	leaveTimeout = 5 * time.Second
)

var ErrConnectionClosed = errors.New("connection closed")

// seatBinding records the player a connection plays as in one match and
// the subscription feeding it that match's events.
type seatBinding struct {
	player match.PlayerID
	sub    *supervisor.Subscription
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	sup       *supervisor.Supervisor
	send      chan []byte
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu    sync.Mutex
	seats map[string]*seatBinding
}

func newConnection(conn *websocket.Conn, sup *supervisor.Supervisor, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		sup:    sup,
		send:   make(chan []byte, sendBuffer),
		logger: logger.WithPrefix("conn").With("remote", conn.RemoteAddr().String()),
		ctx:    ctx,
		cancel: cancel,
		seats:  make(map[string]*seatBinding),
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} { return c.ctx.Done() }

// Close closes the connection. Writers stop on the cancelled context, so
// the send channel is never closed.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client. A client that stops reading
// is disconnected rather than allowed to hold up the match.
func (c *Connection) SendMessage(msg *protocol.Message) error {
	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Player returns the player id bound for matchID.
func (c *Connection) Player(matchID string) (match.PlayerID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.seats[matchID]
	if !ok {
		return "", false
	}
	return b.player, true
}

func (c *Connection) bind(matchID string, b *seatBinding) {
	c.mu.Lock()
	c.seats[matchID] = b
	c.mu.Unlock()
}

// unbind drops the binding for matchID if it is still b.
func (c *Connection) unbind(matchID string, b *seatBinding) {
	c.mu.Lock()
	if c.seats[matchID] == b {
		delete(c.seats, matchID)
	}
	c.mu.Unlock()
	b.sub.Close()
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		msg, err := protocol.Unmarshal(data)
		if err != nil {
			_ = c.SendMessage(protocol.NewError(nil, err))
			continue
		}
		c.handleMessage(msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// cleanup leaves every match the connection played in. Once dealt the
// seat stays taken, so the player can rejoin by id.
func (c *Connection) cleanup() {
	_ = c.Close()

	c.mu.Lock()
	seats := c.seats
	c.seats = make(map[string]*seatBinding)
	c.mu.Unlock()

	for matchID, b := range seats {
		ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		if _, err := c.sup.Dispatch(ctx, matchID, match.Leave{PlayerID: b.player}); err != nil {
			c.logger.Debug("Leave on disconnect failed", "match", matchID, "player", b.player, "error", err)
		}
		cancel()
		b.sub.Close()
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *protocol.Message) {
	c.logger.Debug("Received message", "type", msg.Type, "match", msg.MatchID)

	var err error
	switch {
	case msg.Type == protocol.TypeCreateMatch:
		err = c.handleCreateMatch(msg)
	case msg.Type == protocol.TypeListMatches:
		err = c.reply(msg, protocol.TypeMatchList, protocol.MatchListData{Matches: c.sup.List(c.ctx)})
	case msg.Type == protocol.TypeView:
		err = c.handleView(msg)
	case msg.Type == protocol.TypeJoin:
		err = c.handleJoin(msg)
	case protocol.IsCommand(msg.Type):
		err = c.handleCommand(msg)
	default:
		err = fmt.Errorf("%w: %s", protocol.ErrUnknownMessageType, msg.Type)
	}

	if err != nil {
		c.logger.Debug("Request failed", "type", msg.Type, "match", msg.MatchID, "error", err)
		_ = c.SendMessage(protocol.NewError(msg, err))
	}
}

func (c *Connection) reply(req *protocol.Message, t protocol.MessageType, data any) error {
	msg, err := protocol.Reply(req, t, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

func (c *Connection) handleCreateMatch(msg *protocol.Message) error {
	id, err := c.sup.CreateMatch()
	if err != nil {
		return err
	}
	msg.MatchID = id
	return c.reply(msg, protocol.TypeMatchCreated, protocol.MatchCreatedData{MatchID: id})
}

func (c *Connection) handleView(msg *protocol.Message) error {
	player, ok := c.Player(msg.MatchID)
	if !ok {
		return fmt.Errorf("%w: not joined to %q", match.ErrUnknownPlayer, msg.MatchID)
	}
	view, err := c.sup.View(c.ctx, msg.MatchID, player)
	if err != nil {
		return err
	}
	return c.reply(msg, protocol.TypeView, view)
}

// handleJoin subscribes before joining so the player sees its own join.
func (c *Connection) handleJoin(msg *protocol.Message) error {
	player, joined := c.Player(msg.MatchID)
	cmd, err := protocol.DecodeCommand(msg, player)
	if err != nil {
		return err
	}
	if joined {
		res, err := c.sup.Dispatch(c.ctx, msg.MatchID, cmd)
		if err != nil {
			return err
		}
		return c.ack(msg, res)
	}

	sub, err := c.sup.Subscribe(msg.MatchID)
	if err != nil {
		return err
	}
	res, err := c.sup.Dispatch(c.ctx, msg.MatchID, cmd)
	if err != nil {
		sub.Close()
		return err
	}

	b := &seatBinding{player: res.PlayerID, sub: sub}
	c.bind(msg.MatchID, b)
	go c.forward(msg.MatchID, b)
	c.logger.Info("Joined match", "match", msg.MatchID, "player", res.PlayerID, "seat", res.Seat)
	return c.ack(msg, res)
}

func (c *Connection) handleCommand(msg *protocol.Message) error {
	player, ok := c.Player(msg.MatchID)
	cmd, err := protocol.DecodeCommand(msg, player)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not joined to %q", match.ErrUnknownPlayer, msg.MatchID)
	}
	res, err := c.sup.Dispatch(c.ctx, msg.MatchID, cmd)
	if err != nil {
		return err
	}

	if _, left := cmd.(match.Leave); left {
		c.mu.Lock()
		b := c.seats[msg.MatchID]
		c.mu.Unlock()
		if b != nil {
			c.unbind(msg.MatchID, b)
		}
	}
	return c.ack(msg, res)
}

func (c *Connection) ack(req *protocol.Message, res match.Result) error {
	data := protocol.AckData{Command: req.Type.String(), PlayerID: res.PlayerID}
	if res.PlayerID != "" {
		s := res.Seat
		data.Seat = &s
	}
	return c.reply(req, protocol.TypeAck, data)
}

// forward relays one match's events, redacted for the bound player, until
// the match ends or the subscription is closed.
func (c *Connection) forward(matchID string, b *seatBinding) {
	for env := range b.sub.Events() {
		msg, ok, err := protocol.EventMessage(env, b.player)
		if err != nil {
			c.logger.Error("Failed to encode event", "match", matchID, "type", env.Event.EventType(), "error", err)
			continue
		}
		if ok {
			if err := c.SendMessage(msg); err != nil {
				return
			}
		}
		if _, ended := env.Event.(match.MatchEnded); ended {
			c.unbind(matchID, b)
			return
		}
	}

	c.mu.Lock()
	current := c.seats[matchID] == b
	c.mu.Unlock()
	if current {
		c.logger.Warn("Event stream dropped", "match", matchID, "player", b.player)
		c.unbind(matchID, b)
	}
}
