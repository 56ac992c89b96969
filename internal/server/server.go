// Package server exposes the conversational orchestrator over a
// WebSocket endpoint: one duplex connection per client, JWT credential
// check on the handshake, inbound messages fanned out to engine turns,
// events streamed back through a single writer.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rovista/listingflow/internal/content"
	"github.com/rovista/listingflow/internal/engine"
	"github.com/rovista/listingflow/internal/session"
)

// Connection tuning.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// Server is the WebSocket front end over the turn engine.
type Server struct {
	engine   *engine.Engine
	sessions *session.Store
	verifier *Verifier
	logger   *slog.Logger
	baseCtx  context.Context
	upgrader websocket.Upgrader

	mu     sync.Mutex
	active map[string]struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBaseContext sets the context turns run under. In-flight turns
// outlive their connection; cancel this context to stop them at
// shutdown. Default: context.Background().
func WithBaseContext(ctx context.Context) ServerOption {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// New creates a Server.
func New(eng *engine.Engine, sessions *session.Store, verifier *Verifier, opts ...ServerOption) *Server {
	s := &Server{
		engine:   eng,
		sessions: sessions,
		verifier: verifier,
		logger:   slog.Default(),
		baseCtx:  context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		active: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with the WebSocket endpoint mounted
// at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleWS authenticates the handshake, upgrades, and runs the
// connection loop until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.Verify(credentialFromRequest(r))
	if err != nil {
		s.logger.Warn("credential rejected",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// A client may pin its session key to reconnect into accumulated
	// state; otherwise each connection gets a fresh session. Keys are
	// namespaced by identity so one client cannot reach another's state.
	clientKey := r.URL.Query().Get("session")
	if clientKey == "" {
		clientKey = uuid.New().String()
	}
	sessionID := identity + ":" + clientKey

	// One live connection per session key. A second connection would
	// share the session and tear it down when either side disconnects.
	if !s.claimSession(sessionID) {
		s.logger.Warn("session already connected",
			slog.String("identity", identity),
			slog.String("session_id", sessionID))
		http.Error(w, "session already connected", http.StatusConflict)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.releaseSession(sessionID)
		return
	}

	s.sessions.Create(sessionID, identity)
	s.logger.Info("client connected",
		slog.String("identity", identity),
		slog.String("session_id", sessionID))

	c := &conn{
		ws:        ws,
		send:      make(chan engine.Event, sendBuffer),
		done:      make(chan struct{}),
		sessionID: sessionID,
		server:    s,
	}
	c.run()
}

// claimSession reserves a session key for one connection. Returns false
// when another live connection already holds it.
func (s *Server) claimSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.active[id]; taken {
		return false
	}
	s.active[id] = struct{}{}
	return true
}

// releaseSession frees a session key claimed by claimSession.
func (s *Server) releaseSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// conn is one client connection: a read loop, a single writer
// goroutine, and the turns in flight for its session.
type conn struct {
	ws        *websocket.Conn
	send      chan engine.Event
	done      chan struct{}
	sessionID string
	server    *Server

	closeOnce sync.Once
	turns     sync.WaitGroup
}

// run drives the connection until the read loop ends, then tears the
// session down: delete immediately so a paused conversation cannot be
// resumed by anyone else, drain in-flight turns, drop their late
// events.
func (c *conn) run() {
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		c.writeLoop()
	}()

	c.readLoop()

	c.server.sessions.Delete(c.sessionID)
	c.server.releaseSession(c.sessionID)
	c.closeOnce.Do(func() { close(c.done) })
	c.turns.Wait()
	writer.Wait()
	c.ws.Close()

	c.server.logger.Info("client disconnected",
		slog.String("session_id", c.sessionID))
}

// readLoop consumes client frames until the connection errors or
// closes. Each well-formed message starts a turn on its own goroutine
// so a slow collaborator call never blocks the next frame.
func (c *conn) readLoop() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.server.logger.Warn("read failed",
					slog.String("session_id", c.sessionID),
					slog.String("error", err.Error()))
			}
			return
		}

		update, err := decodeMessage(data)
		if err != nil {
			c.emit(engine.Event{Type: engine.EventError, Message: err.Error()})
			continue
		}

		c.turns.Add(1)
		go func(u content.Update) {
			defer c.turns.Done()
			// Errors surface to the client as events; the log entry is
			// for the operator.
			if err := c.server.engine.RunTurn(c.server.baseCtx, c.sessionID, u, c.emit); err != nil {
				c.server.logger.Warn("turn failed",
					slog.String("session_id", c.sessionID),
					slog.String("error", err.Error()))
			}
		}(update)
	}
}

// writeLoop is the only goroutine that writes to the socket.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// emit forwards one event to the writer. After disconnect the event is
// dropped silently; a turn outliving its connection must never block or
// crash on delivery.
func (c *conn) emit(ev engine.Event) {
	select {
	case <-c.done:
	case c.send <- ev:
	}
}
