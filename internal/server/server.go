// Package server exposes a supervisor over WebSocket. It authenticates
// nothing: a connection is bound to whatever player id its join returns.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/mahjongforbots/internal/supervisor"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long Serve waits for in-flight HTTP requests.
const shutdownTimeout = 5 * time.Second

// Server represents the WebSocket server
type Server struct {
	sup      *supervisor.Supervisor
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu          sync.Mutex
	connections map[*Connection]struct{}
}

// New creates a server routing commands to sup.
func New(sup *supervisor.Supervisor, logger *log.Logger) *Server {
	return &Server{
		sup: sup,
		upgrader: websocket.Upgrader{
			// Bots connect from anywhere
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]struct{}),
	}
}

// Handler returns the HTTP routes: /ws, /health and /matches.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /matches", s.handleListMatches)
	mux.HandleFunc("POST /matches", s.handleCreateMatch)
	return mux
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// HTTP server down and closes every WebSocket connection.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")
		s.closeConnections()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Connections returns the number of open WebSocket connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	s.connections[c] = struct{}{}
	n := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", n)
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	delete(s.connections, c)
	n := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client disconnected", "total", n)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := newConnection(ws, s.sup, s.logger)
	s.register(c)
	go func() {
		<-c.Done()
		s.unregister(c)
	}()
	c.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sup.List(r.Context()))
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := s.sup.CreateMatch()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"matchId": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
