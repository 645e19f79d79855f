// Package client speaks the WebSocket protocol to a mahjong server.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/protocol"
	"github.com/lox/mahjongforbots/internal/supervisor"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// ErrClosed is returned once the connection has gone.
var ErrClosed = errors.New("connection closed")

// Client represents a WebSocket connection to the server
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	nextID    atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan *protocol.Message
	queue   []*protocol.Message
	notify  chan struct{}
}

// Dial connects to serverURL. http and https URLs are converted to ws and
// wss, and an empty path becomes /ws.
func Dial(ctx context.Context, serverURL string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		logger:  logger.WithPrefix("client"),
		send:    make(chan []byte, 64),
		ctx:     cctx,
		cancel:  cancel,
		pending: make(map[string]chan *protocol.Message),
		notify:  make(chan struct{}, 1),
	}
	go c.readPump()
	go c.writePump()

	c.logger.Debug("Connected to server", "url", u.String())
	return c, nil
}

// Close disconnects from the server.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
	return nil
}

// Done is closed once the connection has gone.
func (c *Client) Done() <-chan struct{} { return c.ctx.Done() }

func (c *Client) readPump() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		msg, err := protocol.Unmarshal(data)
		if err != nil {
			c.logger.Warn("Bad frame from server", "error", err)
			continue
		}

		c.mu.Lock()
		if ch, ok := c.pending[msg.RequestID]; ok && msg.RequestID != "" {
			delete(c.pending, msg.RequestID)
			c.mu.Unlock()
			ch <- msg
			continue
		}
		c.queue = append(c.queue, msg)
		c.mu.Unlock()

		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("Failed to write message", "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Next returns the next frame that is not a reply, in arrival order.
func (c *Client) Next(ctx context.Context) (*protocol.Message, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			msg := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return msg, nil
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ctx.Done():
			return nil, ErrClosed
		}
	}
}

// Request sends a message and waits for the reply carrying its request id.
// An error reply is returned as an error matching the sentinel for its code.
func (c *Client) Request(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	msg.RequestID = strconv.FormatUint(c.nextID.Add(1), 10)
	data, err := protocol.Marshal(msg)
	if err != nil {
		return nil, err
	}

	ch := make(chan *protocol.Message, 1)
	c.mu.Lock()
	c.pending[msg.RequestID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
	}()

	select {
	case c.send <- data:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}

	select {
	case reply := <-ch:
		if reply.Type == protocol.TypeError {
			var e protocol.ErrorData
			if err := reply.Decode(&e); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%s: %w", msg.Type, e.Err())
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

func (c *Client) call(ctx context.Context, t protocol.MessageType, matchID string, data, out any) error {
	msg, err := protocol.NewMessage(t, matchID, data)
	if err != nil {
		return err
	}
	reply, err := c.Request(ctx, msg)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return reply.Decode(out)
}

// CreateMatch asks the server for a new match and returns its id.
func (c *Client) CreateMatch(ctx context.Context) (string, error) {
	var created protocol.MatchCreatedData
	if err := c.call(ctx, protocol.TypeCreateMatch, "", nil, &created); err != nil {
		return "", err
	}
	return created.MatchID, nil
}

// ListMatches returns the server's match directory.
func (c *Client) ListMatches(ctx context.Context) ([]supervisor.Summary, error) {
	var list protocol.MatchListData
	if err := c.call(ctx, protocol.TypeListMatches, "", nil, &list); err != nil {
		return nil, err
	}
	return list.Matches, nil
}

// Join takes a seat in matchID. A known player id rejoins that seat.
func (c *Client) Join(ctx context.Context, matchID string, player match.PlayerID, name string) (protocol.AckData, error) {
	var ack protocol.AckData
	err := c.call(ctx, protocol.TypeJoin, matchID, protocol.JoinData{PlayerID: player, Name: name}, &ack)
	return ack, err
}

// View returns what this connection's player may see of matchID.
func (c *Client) View(ctx context.Context, matchID string) (match.View, error) {
	var v match.View
	err := c.call(ctx, protocol.TypeView, matchID, nil, &v)
	return v, err
}

// Do sends a command for the player this connection joined matchID as.
func (c *Client) Do(ctx context.Context, matchID string, cmd match.Command) error {
	msg, err := protocol.EncodeCommand(matchID, cmd)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, msg)
	return err
}
